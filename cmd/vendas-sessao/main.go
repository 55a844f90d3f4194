// CLAUDE:SUMMARY Interactive login: opens a visible Chrome on the dashboard and saves the session cookies once the operator confirms.
// Command vendas-sessao records the dashboard session used by vendas.
// It opens a visible browser on the report page; log in there, then press
// ENTER in this terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hazyhaar/vendas/collector"
)

func main() {
	configPath := flag.String("config", os.Getenv("VENDAS_CONFIG"), "path to vendas.yaml config file")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := collector.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("vendas-sessao: config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Abrindo %s\n", cfg.URL)
	n, err := collector.Login(ctx, cfg, nil, waitEnter, logger)
	if err != nil {
		logger.Error("vendas-sessao: login failed", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Sessão salva em %s (%d cookies). Agora execute: vendas\n", cfg.Path(cfg.SessionFile), n)
}

// waitEnter blocks until the operator presses ENTER or ctx is done.
func waitEnter(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "Complete o login no navegador e pressione ENTER aqui...")
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
