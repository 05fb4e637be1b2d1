// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pipechat is a terminal chat demo on top of pipemsg. One process
// serves a pipe name, any number of others join it.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/someonegg/pipemsg"
	"github.com/someonegg/pipemsg/chat"
)

var (
	pipeName string
	debug    bool
)

func main() {
	root := &cobra.Command{
		Use:           "pipechat",
		Short:         "named-pipe chat demo",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&pipeName, "pipe", "pipechat", "well-known pipe name")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	root.AddCommand(serveCmd(), joinCmd())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := chat.NewServer(pipeName)
			srv.Start()
			logrus.Infof("serving chat on pipe %q", pipeName)

			sigC := make(chan os.Signal, 1)
			signal.Notify(sigC, os.Interrupt)
			<-sigC

			logrus.Info("shutting down")
			srv.Stop()
			return nil
		},
	}
}

func joinCmd() *cobra.Command {
	var nick string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "join a chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// All message callbacks render on this goroutine, the
			// terminal never sees interleaved writes.
			sched := pipemsg.NewSerialScheduler(64)
			defer sched.Close()

			cli := chat.NewClient(pipeName, nick, pipemsg.WithScheduler(sched))
			cli.OnLine = func(line string) {
				fmt.Println(line)
			}
			if err := cli.Start(5 * time.Second); err != nil {
				return err
			}
			defer cli.Stop()

			go func() {
				in := bufio.NewScanner(os.Stdin)
				for in.Scan() {
					if line := in.Text(); line != "" {
						cli.Say(line)
					}
				}
				sched.Close()
			}()

			sched.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&nick, "nick", "anonymous", "nickname")
	return cmd
}
