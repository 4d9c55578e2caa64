package definition

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

func TestCountingFilter_StopsAfterLimit(t *testing.T) {
	filter := NewCountingFilter(2, nil)
	sender := types.NewAddress("a")
	if !filter.NeedMoreResponses() {
		t.Fatalf("should need responses at start")
	}

	filter.IsAcceptable("x", sender)
	if !filter.NeedMoreResponses() {
		t.Fatalf("should need one more response")
	}

	filter.IsAcceptable("y", types.NewAddress("b"))
	if filter.NeedMoreResponses() {
		t.Fatalf("should not need more responses")
	}
}

func TestCountingFilter_SameMemberCountsOnce(t *testing.T) {
	filter := NewCountingFilter(2, nil)
	sender := types.NewAddress("a")
	for i := 0; i < 3; i++ {
		if !filter.IsAcceptable(i, sender) {
			t.Fatalf("reply %d should be accepted", i)
		}
	}

	if !filter.NeedMoreResponses() {
		t.Fatalf("repeated replies from one member should count once")
	}

	filter.IsAcceptable("y", types.NewAddress("b"))
	if filter.NeedMoreResponses() {
		t.Fatalf("two members replied")
	}
}

func TestFirstNonNilFilter(t *testing.T) {
	filter := NewFirstNonNilFilter()
	sender := types.NewAddress("a")
	if filter.IsAcceptable(nil, sender) {
		t.Errorf("nil should not be accepted")
	}

	if filter.IsAcceptable([]byte{}, sender) {
		t.Errorf("empty payload should not be accepted")
	}

	if !filter.NeedMoreResponses() {
		t.Fatalf("rejected replies should not count")
	}

	if !filter.IsAcceptable([]byte("value"), sender) {
		t.Errorf("value should be accepted")
	}

	if filter.NeedMoreResponses() {
		t.Fatalf("should be satisfied after first value")
	}
}

func TestExcludeFilter(t *testing.T) {
	excluded := types.NewAddress("excluded")
	filter := NewExcludeFilter(excluded)
	if filter.IsAcceptable("v", excluded) {
		t.Errorf("excluded member accepted")
	}

	if !filter.IsAcceptable("v", types.NewAddress("other")) {
		t.Errorf("other member rejected")
	}
}

func TestDefaultLogger_WritesComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLoggerTo(buf, "testing")
	logger.Infof("hello %s", "world")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "hello world") {
		t.Fatalf("missing info line: %s", out)
	}

	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written without debug enabled: %s", out)
	}

	if !logger.ToggleDebug(true) {
		t.Fatalf("debug should be enabled")
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("missing debug line: %s", buf.String())
	}
}

func TestDefaultLogger_Panic(t *testing.T) {
	logger := NewLoggerTo(&bytes.Buffer{}, "testing")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("should panic")
		}
	}()
	logger.Panicf("failure %d", 1)
}
