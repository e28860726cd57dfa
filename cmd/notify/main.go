package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/privibase/relay/clients"
)

var flagServerAddr = &cli.StringFlag{
	Name:  "relay-addr",
	Value: "http://127.0.0.1:3000",
	Usage: "Relay webhook address to post to",
}
var flagUser = &cli.StringFlag{
	Name:     "user",
	Required: true,
	Usage:    "Subscriber chain address the alert is for",
}
var flagMessage = &cli.StringFlag{
	Name:     "message",
	Required: true,
	Usage:    "Alert message text",
}

func main() {
	app := &cli.App{
		Name:  "notify",
		Usage: "Post a hardware alert to a running Privibase relay",
		Flags: []cli.Flag{
			flagServerAddr,
			flagUser,
			flagMessage,
		},
		Action: func(cCtx *cli.Context) error {
			client := &clients.NotifyClient{ServerAddr: cCtx.String(flagServerAddr.Name)}
			if err := client.Notify(cCtx.Context, cCtx.String(flagUser.Name), cCtx.String(flagMessage.Name)); err != nil {
				return err
			}
			fmt.Println("notification dispatched")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
