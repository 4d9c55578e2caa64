package types

import "fmt"

// Address identifies a single member of the group.
// Members at the same network site share the Site value,
// this is used to resolve a whole site as unreachable at once.
type Address struct {
	// Unique name of the member inside the group.
	Name string

	// The network site the member lives in. Can be empty
	// when the group spans a single site.
	Site string
}

// Creates a new address for a member that does not belong
// to any specific site.
func NewAddress(name string) Address {
	return Address{Name: name}
}

// Creates a new address for a member that lives in the
// given site.
func NewSiteAddress(name, site string) Address {
	return Address{Name: name, Site: site}
}

// Verify if the address holds any value.
func (a Address) IsZero() bool {
	return a.Name == "" && a.Site == ""
}

func (a Address) String() string {
	if a.Site == "" {
		return a.Name
	}
	return fmt.Sprintf("%s@%s", a.Name, a.Site)
}

// A View is the membership of the group at some point in time.
// Views are delivered by the membership service, here they are
// only consumed to know which members are still around.
type View struct {
	// Monotonically increasing view identifier.
	ID uint64

	// Members that belong to the group while this view is installed.
	Members []Address
}

// Creates a new view with the given identifier and members.
func NewView(id uint64, members ...Address) View {
	return View{ID: id, Members: members}
}

// Verify if the member is part of the view.
func (v View) Contains(member Address) bool {
	for _, m := range v.Members {
		if m == member {
			return true
		}
	}
	return false
}

func (v View) String() string {
	return fmt.Sprintf("[%d] %v", v.ID, v.Members)
}
