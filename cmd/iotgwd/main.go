// Command iotgwd is the IoT protocol gateway daemon: it loads a YAML
// config, opens every configured connector, starts every bridge, and
// runs in the foreground until SIGINT/SIGTERM, reporting readiness and
// liveness to systemd via sd_notify. Grounded on the teacher's
// cmd/main.go Application-facade lifecycle (load, register, run until
// signal) and lone-faerie-mqttop's cmd/root.go cobra RootCommand shape,
// without that repo's background-detach/pingback mechanism — iotgwd is
// meant to run supervised, in the foreground, under systemd.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iotgw/iotgwd/internal/build"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/supervisor"

	_ "github.com/iotgw/iotgwd/internal/connector/httpconn"
	_ "github.com/iotgw/iotgwd/internal/connector/modbusconn"
	_ "github.com/iotgw/iotgwd/internal/connector/mqttconn"
	_ "github.com/iotgw/iotgwd/internal/connector/opaque"
	_ "github.com/iotgw/iotgwd/internal/connector/spiconn"
	_ "github.com/iotgw/iotgwd/internal/connector/uartconn"
)

var (
	configPath string
	confDir    string
)

func main() {
	root := &cobra.Command{
		Use:           "iotgwd",
		Short:         "IoT protocol gateway daemon",
		Version:       build.Version(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "/etc/iotgwd/gateway.yaml", "path to the main gateway config file")
	root.Flags().StringVar(&confDir, "confdir", "/etc/iotgwd/conf.d", "directory of additional *.yaml config fragments")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Startup("iotgwd %s starting, config=%s confdir=%s", build.Version(), configPath, confDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(supervisor.Options{ConfigPath: configPath, ConfDir: confDir})

	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	defer signal.Stop(reloadCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reloadCh:
				if err := sup.Reload(); err != nil {
					logger.Error("iotgwd: reload failed: %v", err)
				}
			}
		}
	}()

	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("iotgwd: %w", err)
	}

	logger.Info("iotgwd: shutdown complete")
	return nil
}
