// Copyright 2025 Certen Protocol
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/megabyte0x/HyperBEAM/config"
	"github.com/megabyte0x/HyperBEAM/internal/bundle"
	"github.com/megabyte0x/HyperBEAM/internal/execstate"
	"github.com/megabyte0x/HyperBEAM/internal/metrics"
	"github.com/megabyte0x/HyperBEAM/internal/peernet"
	"github.com/megabyte0x/HyperBEAM/internal/poda"
	"github.com/megabyte0x/HyperBEAM/internal/procstore"
	"github.com/megabyte0x/HyperBEAM/internal/walletkey"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		configPath = flag.String("config", "", "path to node YAML config (required)")
		showHelp   = flag.Bool("help", false, "show help message")
	)
	flag.Parse()

	if *showHelp || *configPath == "" {
		printHelp()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("poda-node: load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("poda-node: invalid config: %v", err)
	}

	wallet, err := walletkey.FromHex(cfg.Wallet.PrivateKeyHex)
	if err != nil {
		log.Fatalf("poda-node: load wallet: %v", err)
	}
	log.Printf("poda-node: local identity %s", wallet.Address())

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("poda-node: build message store: %v", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	dirs := make(peernet.Directory, len(cfg.Peers.Directory))
	for encoded, url := range cfg.Peers.Directory {
		addr, err := walletkey.DecodeAddress(encoded)
		if err != nil {
			log.Fatalf("poda-node: bad peer directory key %q: %v", encoded, err)
		}
		dirs[addr] = url
	}
	peerClient := peernet.NewClient(dirs, cfg.Peers.Timeout.Duration())

	device := poda.New(wallet, recorder)
	host := newLocalHost(wallet, store)

	node := &nodeServer{
		device: device,
		wallet: wallet,
		store:  store,
		router: peerClient,
		client: peerClient,
	}

	mux := http.NewServeMux()
	registerHandlers(mux, host, node, wallet, reg, cfg)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.Timeout.Duration(),
		WriteTimeout: cfg.Server.Timeout.Duration(),
	}

	go func() {
		log.Printf("poda-node: listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("poda-node: server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("poda-node: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("poda-node: shutdown error: %v", err)
	}
}

func buildStore(cfg *config.NodeConfig) (execstate.MessageStore, func(), error) {
	switch cfg.Store.Backend {
	case "kv":
		db, err := dbm.NewGoLevelDB("poda", cfg.Store.KVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open kv store: %w", err)
		}
		return procstore.NewKVStore(db), func() { db.Close() }, nil
	case "firestore":
		fsCfg := &procstore.FirestoreConfig{
			ProjectID:       cfg.Store.Firestore.ProjectID,
			CredentialsFile: cfg.Store.Firestore.CredentialsFile,
			Collection:      cfg.Store.Firestore.Collection,
			Enabled:         cfg.Store.Firestore.Enabled,
		}
		st, err := procstore.NewFirestoreStore(context.Background(), fsCfg)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return procstore.NewMemStore(), func() {}, nil
	}
}

// localHost is a minimal peernet.ProcessHost: it answers Compute requests by
// signing a fresh attestation over the requested assignment, standing in for
// an actual compute runtime. Its hosted map starts empty and nothing adds to
// it, so LocalNode reports every process as not hosted locally.
type localHost struct {
	wallet *walletkey.Wallet
	store  execstate.MessageStore

	mu     sync.RWMutex
	hosted map[bundle.ID]execstate.ComputeNode
}

func newLocalHost(wallet *walletkey.Wallet, store execstate.MessageStore) *localHost {
	return &localHost{wallet: wallet, store: store, hosted: make(map[bundle.ID]execstate.ComputeNode)}
}

func (h *localHost) LocalNode(processID bundle.ID) (execstate.ComputeNode, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	node, ok := h.hosted[processID]
	return node, ok
}

func (h *localHost) Compute(processID, assignmentID bundle.ID) (*bundle.Item, error) {
	att := &bundle.Item{
		Tags: []bundle.Tag{{Name: "Attestation-For", Value: bundle.EncodeID(assignmentID)}},
	}
	if err := bundle.SignItem(att, h.wallet); err != nil {
		return nil, fmt.Errorf("sign compute attestation: %w", err)
	}
	return att, nil
}

var _ peernet.ProcessHost = (*localHost)(nil)

func registerHandlers(mux *http.ServeMux, host *localHost, node *nodeServer, wallet *walletkey.Wallet, reg *prometheus.Registry, cfg *config.NodeConfig) {
	peerHandlers := peernet.NewHandlers(host, wallet.Address(), nil)
	mux.HandleFunc("/poda/find", peerHandlers.HandleFind)
	mux.HandleFunc("/poda/compute", peerHandlers.HandleCompute)
	mux.HandleFunc("/poda/execute", node.handleExecute)
	mux.HandleFunc("/poda/push", node.handlePush)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if cfg.Monitoring.Enabled {
		mux.Handle(cfg.Monitoring.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

func printHelp() {
	fmt.Println(`poda-node: runs a single PoDA consensus device node.

Usage:
  poda-node -config <path/to/node.yaml>

Flags:`)
	flag.PrintDefaults()
}
