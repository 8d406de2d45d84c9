package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the follow-up poller",
	Long:  `Processes due follow-up tasks and promotes manual events on every tick, without serving HTTP. Several workers can run at once when Valkey is enabled.`,
	Run:   runWorker,
}

func init() {
	workerCmd.Flags().Bool("once", false, "run a single tick and exit")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildContainer(ctx)
	if err != nil {
		logrus.Fatalf("[BOOT] %v", err)
	}
	defer c.Close()

	if once, _ := cmd.Flags().GetBool("once"); once {
		c.poller.RunOnce(ctx)
		return
	}

	<-c.poller.Start(ctx)
}
