package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/eightball-blue/config"
	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/wire"
)

func demoCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run both roles over an in-process wire and ask one question.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "question",
				Aliases: []string{"q"},
				Value:   "Will it rain today?",
				Usage:   "The question to ask.",
			},
		},
		Action: func(ctx *cli.Context) error {
			return runDemo(cfg.Values, ctx.String("question"))
		},
	}
}

func runDemo(v config.Values, question string) error {
	hub := wire.NewHub()
	answerEnd := hub.NewEndpoint(uuid.NewString())
	askEnd := hub.NewEndpoint(uuid.NewString())
	defer answerEnd.Close()
	defer askEnd.Close()

	peripheral := eightball.NewPeripheral(answerEnd, eightball.PeripheralOptions{
		Name: v.DeviceName,
	})
	answerEnd.SetPeripheralEvents(peripheral)
	peripheral.Subscribe(&autoAnswerer{peripheral: peripheral})

	central := eightball.NewCentral(askEnd, eightball.CentralOptions{
		Name:          "asker",
		RSSIMin:       v.RSSIMin,
		RSSIMax:       v.RSSIMax,
		AnswerTimeout: v.Timeout(),
	})
	askEnd.SetCentralEvents(central)
	ask := newAsker(central, question)
	central.Subscribe(ask)

	g, _ := errgroup.WithContext(context.Background())
	g.Go(peripheral.Start)
	g.Go(central.Start)
	if err := g.Wait(); err != nil {
		return err
	}
	defer central.Close()
	defer peripheral.Close()

	select {
	case answer := <-ask.answers:
		printAnswer(question, answer)
		return nil
	case err := <-ask.errs:
		return err
	case <-time.After(v.Timeout() + 5*time.Second):
		return fmt.Errorf("demo: no answer within %v", v.Timeout())
	}
}
