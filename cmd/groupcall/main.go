package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/codegangsta/cli"
	"github.com/jabolina/go-groupcall/pkg/groupcall"
	"github.com/jabolina/go-groupcall/pkg/groupcall/core"
	"github.com/jabolina/go-groupcall/pkg/groupcall/definition"
	"github.com/jabolina/go-groupcall/pkg/groupcall/helper"
	"github.com/jabolina/go-groupcall/pkg/groupcall/types"
)

var usage = `
	groupcall starts a group of members in the same process and casts a
	request from the first member to all of them, printing every reply.

	Members can be configured to never answer, the request then waits for
	them until the timeout, or until they are suspected when using the
	--suspect flag or when they stay silent longer than --suspect-after.

		groupcall --members 5 --silent 2 --mode all --timeout 500ms --suspect
		groupcall --members 5 --silent 2 --mode all --suspect-after 200ms
	`

var modes = map[string]types.ResponseMode{
	"none":     types.GetNone,
	"one":      types.GetOne,
	"all":      types.GetAll,
	"majority": types.GetMajority,
}

func main() {
	app := cli.NewApp()
	app.Name = "groupcall"
	app.Usage = usage
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "members", Value: 3, Usage: "how many members in the group"},
		cli.IntFlag{Name: "silent", Value: 0, Usage: "how many members never answer"},
		cli.StringFlag{Name: "mode", Value: "all", Usage: "response mode: none, one, all or majority"},
		cli.DurationFlag{Name: "timeout", Value: 0, Usage: "how long to wait, zero waits forever"},
		cli.BoolFlag{Name: "suspect", Usage: "suspect the silent members right after casting"},
		cli.DurationFlag{Name: "suspect-after", Value: 0, Usage: "suspect members silent for this long, zero disables"},
		cli.StringFlag{Name: "payload", Value: "ping", Usage: "what to send"},
		cli.BoolFlag{Name: "debug", Usage: "log debug messages"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	mode, ok := modes[strings.ToLower(c.String("mode"))]
	if !ok {
		return fmt.Errorf("unknown mode %s", c.String("mode"))
	}

	size := c.Int("members")
	silent := c.Int("silent")
	if size <= 0 || silent < 0 || silent >= size {
		return fmt.Errorf("invalid group of %d members with %d silent", size, silent)
	}

	logger := definition.NewDefaultLogger()
	logger.ToggleDebug(c.Bool("debug"))
	network := core.NewMemoryNetwork(logger)
	group := "groupcall-" + helper.GenerateUID()

	var members []types.Address
	var dispatchers []*core.Dispatcher
	defer func() {
		for _, d := range dispatchers {
			_ = d.Close()
		}
	}()

	for i := 0; i < size; i++ {
		address := types.NewAddress(fmt.Sprintf("member-%d", i))
		transport, err := network.Join(address)
		if err != nil {
			return err
		}

		configuration := groupcall.DefaultConfiguration(group, address)
		configuration.Logger = logger
		configuration.SuspectAfter = c.Duration("suspect-after")
		d, err := groupcall.NewDispatcherConfigured(configuration, transport, echo(address))
		if err != nil {
			_ = transport.Close()
			return err
		}
		members = append(members, address)
		dispatchers = append(dispatchers, d)
	}

	view := types.NewView(1, members...)
	for _, d := range dispatchers {
		d.ViewChange(view)
	}

	var silenced []types.Address
	for i := size - silent; i < size; i++ {
		network.Drop(members[i])
		silenced = append(silenced, members[i])
	}

	caller := dispatchers[0]
	if c.Bool("suspect") {
		future, err := caller.CastMessageWithFuture(nil, []byte(c.String("payload")), types.NewRequestOptions(mode, c.Duration("timeout")), nil)
		if err != nil {
			return err
		}
		for _, member := range silenced {
			caller.Suspect(member)
		}
		rsps, err := future.Get(context.Background())
		printReplies(rsps)
		return err
	}

	rsps, err := caller.CastMessage(context.Background(), nil, []byte(c.String("payload")), types.NewRequestOptions(mode, c.Duration("timeout")))
	printReplies(rsps)
	return err
}

func echo(address types.Address) core.RequestHandler {
	return func(message types.Message) ([]byte, error) {
		return []byte(fmt.Sprintf("%s from %s", message.Payload, address)), nil
	}
}

func printReplies(rsps types.RspList) {
	for _, rsp := range rsps {
		if rsp.Received && rsp.Exception == nil {
			fmt.Printf("%s: %s\n", rsp.Sender, rsp.Value)
			continue
		}
		fmt.Println(rsp)
	}
}
