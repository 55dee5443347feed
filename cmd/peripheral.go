package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/user/eightball-blue/config"
	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/tinyble"
)

func peripheralCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "peripheral",
		Usage: "Advertise over the radio and answer incoming questions.",
		Action: func(ctx *cli.Context) error {
			return runPeripheral(cfg.Values)
		},
	}
}

func runPeripheral(v config.Values) error {
	transport := tinyble.NewPeripheral()
	peripheral := eightball.NewPeripheral(transport, eightball.PeripheralOptions{
		Name: v.DeviceName,
	})
	transport.SetEvents(peripheral)
	if err := transport.Enable(); err != nil {
		return err
	}

	peripheral.Subscribe(&autoAnswerer{peripheral: peripheral})
	if err := peripheral.Start(); err != nil {
		return err
	}
	defer peripheral.Close()
	printInfo("advertising as %q (ctrl-c to stop)", v.DeviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}
