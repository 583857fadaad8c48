package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Run queue batches outside the http server",
}

var queueProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one batch of eligible jobs and exit",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		initApp(ctx)
		defer StopApp()

		if err := runBatch(ctx); err != nil {
			logrus.Fatalf("[QUEUE] Batch failed: %v", err)
		}
	},
}

var queueScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Trigger a batch on the configured schedule (QUEUE_SCHEDULE) until stopped",
	Run:   queueSchedule,
}

func init() {
	queueScheduleCmd.Flags().String("spec", "", `cron spec overriding QUEUE_SCHEDULE | example: --spec="@every 30s"`)
	queueCmd.AddCommand(queueProcessCmd, queueScheduleCmd)
	rootCmd.AddCommand(queueCmd)
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func queueSchedule(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initApp(ctx)
	defer StopApp()

	spec := cfg.Queue.ScheduleSpec
	if v, _ := cmd.Flags().GetString("spec"); v != "" {
		spec = v
	}

	// A batch that outlives its tick is not overlapped by the next one.
	sched := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := sched.AddFunc(spec, func() {
		if err := runBatch(ctx); err != nil {
			logrus.Errorf("[QUEUE] Scheduled batch failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("[QUEUE] Invalid schedule %q: %v", spec, err)
	}

	sched.Start()
	logrus.Infof("[QUEUE] Scheduler started (%s)", spec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logrus.Info("[QUEUE] Stopping scheduler, waiting for the running batch...")
	cancel()
	<-sched.Stop().Done()
}

func runBatch(ctx context.Context) error {
	res, err := container.Queue.ProcessQueue(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		logrus.Debug("[QUEUE] Batch skipped, another node holds the lock")
		return nil
	}

	stats, err := container.Queue.Stats(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"picked":  res.Picked,
		"done":    res.Done,
		"retried": res.Retried,
		"failed":  res.Failed,
	}).Infof("[QUEUE] Batch finished, %s jobs still pending", humanize.Comma(stats.Pending))
	return nil
}
