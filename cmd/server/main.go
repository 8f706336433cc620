// Command server wires every subsystem together and runs the
// player-facing WebSocket gateway on SERVER_ADDR and the admin control
// plane on ADMIN_ADDR.
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/decred/slog"

	"holdem-lite/internal/admin"
	"holdem-lite/internal/auth"
	"holdem-lite/internal/configstore"
	"holdem-lite/internal/gateway"
	"holdem-lite/internal/history"
	"holdem-lite/internal/lobby"
	"holdem-lite/internal/payment"
	"holdem-lite/internal/session"
	"holdem-lite/internal/wallet"
)

func main() {
	backend := slog.NewBackend(os.Stderr)
	logLevel := logLevelFromEnv()

	newLogger := func(subsystem string) slog.Logger {
		l := backend.Logger(subsystem)
		l.SetLevel(logLevel)
		return l
	}

	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] auth init: %v", err)
	}
	defer authService.Close()

	walletService, err := wallet.NewServiceFromEnv(authMode)
	if err != nil {
		log.Fatalf("[Server] wallet init: %v", err)
	}
	defer walletService.Close()

	historyService, historyMode, err := history.NewServiceFromEnv(authMode)
	if err != nil {
		log.Fatalf("[Server] history init: %v", err)
	}
	defer historyService.Close()

	cfgStore, err := configstore.Open(configPathFromEnv())
	if err != nil {
		log.Fatalf("[Server] config store init: %v", err)
	}

	var gw *gateway.Gateway
	lby, err := lobby.New(walletService, historyService, func(tableID string) {
		gw.BroadcastTable(tableID)
	}, newLogger("LOBBY"), cashTablesFromEnv())
	if err != nil {
		log.Fatalf("[Server] lobby init: %v", err)
	}
	defer lby.Stop()

	sessReg := session.New(session.DefaultGraceWindow, lby.GetTable, newLogger("SESSION"))
	paymentProvider := payment.NewSandboxProvider(os.Getenv("PAYMENT_APPROVAL_BASE_URL"))
	gw = gateway.New(authService, lby, walletService, paymentProvider, sessReg, newLogger("GATEWAY"))

	adminHandler := admin.NewHandler(authService, walletService, lby, paymentProvider, cfgStore, gw, adminTokenFromEnv(), newLogger("ADMIN"))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP := auth.NewHTTPHandler(authService)
	authHTTP.RegisterRoutes(mux)
	historyHTTP := history.NewHTTPHandler(authService, historyService)
	historyHTTP.RegisterRoutes(mux)

	adminMux := http.NewServeMux()
	adminHandler.RegisterRoutes(adminMux)

	serverAddr := addrFromEnv("SERVER_ADDR", ":18080")
	adminAddr := addrFromEnv("ADMIN_ADDR", ":18081")

	log.Printf("[Server] auth mode: %s", authMode)
	log.Printf("[Server] history mode: %s", historyMode)
	log.Printf("[Server] gateway listening on %s", serverAddr)
	log.Printf("[Server] admin plane listening on %s", adminAddr)

	errCh := make(chan error, 2)
	go func() { errCh <- http.ListenAndServe(serverAddr, withCORS(mux)) }()
	go func() { errCh <- http.ListenAndServe(adminAddr, adminMux) }()
	log.Fatalf("[Server] %v", <-errCh)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addrFromEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func adminTokenFromEnv() string {
	return strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))
}

func configPathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("SERVER_CONFIG_PATH")); v != "" {
		return v
	}
	return "holdem_server_config.json"
}

func logLevelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "trace":
		return slog.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// cashTablesFromEnv returns the fixed roster of cash tables seeded at
// startup. A future iteration could load this from a config file; for
// now a small fixed ladder covers the common stake levels.
func cashTablesFromEnv() []lobby.CashTableConfig {
	return []lobby.CashTableConfig{
		{ID: "cash_1_2", Name: "1/2 NL Hold'em", MaxSeats: 6, SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200},
		{ID: "cash_2_5", Name: "2/5 NL Hold'em", MaxSeats: 6, SmallBlind: 2, BigBlind: 5, MinBuyIn: 100, MaxBuyIn: 500},
		{ID: "cash_5_10", Name: "5/10 NL Hold'em", MaxSeats: 9, SmallBlind: 5, BigBlind: 10, MinBuyIn: 200, MaxBuyIn: 1000},
	}
}
