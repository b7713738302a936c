package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"mentalworld.ai/internal/mind/model"
	"mentalworld.ai/internal/mind/registry"
	"mentalworld.ai/internal/persistence/archive"
	"mentalworld.ai/internal/persistence/indexdb"
	persistlog "mentalworld.ai/internal/persistence/log"
	"mentalworld.ai/internal/persistence/snapshot"
	"mentalworld.ai/internal/persistence/weights"
	"mentalworld.ai/internal/transport/observer"
	"mentalworld.ai/internal/transport/ws"
	"mentalworld.ai/internal/tuning"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		modelID     = flag.String("model", "companion", "model id (names the data subdirectory)")
		configPath  = flag.String("config", "./configs/model.yaml", "path to model.yaml")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		weightsPath = flag.String("weights", "", "path to a weights checkpoint (default: fresh seeded weights)")
		saveWeights = flag.String("save_weights", "", "write the loaded weights to this path and continue")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite update index")
		enableObs   = flag.Bool("enable_observer", true, "serve the loopback observer feed")

		snapPath   = flag.String("snapshot", "", "path to registry snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		keepSnaps  = flag.Int("keep_snapshots", 12, "periodic snapshots kept before pruning")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[mindd] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}

	modelDir := filepath.Join(*dataDir, "models", *modelID)
	_ = os.MkdirAll(modelDir, 0o755)

	// Weights: checkpoint if given, otherwise deterministic seeded init.
	var m *model.Model
	if strings.TrimSpace(*weightsPath) != "" {
		m, err = weights.Read(*weightsPath, tune.ModelConfig())
		if err != nil {
			logger.Fatalf("load weights: %v", err)
		}
		logger.Printf("loaded weights from %s", *weightsPath)
	} else {
		m = model.New(tune.ModelConfig(), tune.Model.WeightSeed)
		logger.Printf("fresh weights: latent=%d visual=%d seed=%d",
			m.Cfg.LatentDim, m.Cfg.VisualDim, m.Seed)
	}

	if *saveWeights != "" {
		if err := weights.Write(*saveWeights, m); err != nil {
			logger.Fatalf("save weights: %v", err)
		}
		logger.Printf("wrote weights to %s", *saveWeights)
	}

	reg := registry.New(m)

	// Resume agent states from the most recent snapshot if present.
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(modelDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := restoreRegistry(reg, snap); err != nil {
			logger.Fatalf("restore registry: %v", err)
		}
		logger.Printf("resumed %d agents from %s", len(snap.Agents), snapshotToLoad)
	}

	// Read-model index (does not affect inference).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(modelDir, "index", "updates.db"))
		if err != nil {
			logger.Fatalf("open update index: %v", err)
		}
		defer idx.Close()
	}

	updateLog := persistlog.NewUpdateLogger(modelDir)
	defer updateLog.Close()

	mr, err := buildMirrorRuntime(*dataDir, logger)
	if err != nil {
		logger.Fatalf("mirror: %v", err)
	}
	defer mr.Close()

	sink := &updateSink{log: updateLog, idx: idx, logger: logger}

	var obsSrv *observer.Server
	if *enableObs {
		obsSrv = observer.NewServer(reg, *modelID, logger)
		sink.obs = obsSrv
	}

	server := ws.NewServer(reg, ws.Config{
		ReadTimeout:  time.Duration(tune.Service.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(tune.Service.WriteTimeoutSec) * time.Second,
	}, sink, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", server.Handler())
	if obsSrv != nil {
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	}
	admin := &adminAPI{reg: reg, m: m, modelID: *modelID, modelDir: modelDir, idx: idx, mr: mr, logger: logger}
	mux.HandleFunc("/admin/v1/state", admin.stateHandler())
	mux.HandleFunc("/admin/v1/snapshot", admin.snapshotHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{Addr: *addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic registry snapshots.
	go snapshotLoop(ctx, reg, m, *modelID, modelDir, time.Duration(tune.Service.SnapshotEverySec)*time.Second, *keepSnaps, idx, mr, logger)

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")
	server.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	// Final snapshot on the way out, archived as a milestone so pruning
	// never drops the shutdown state.
	path, snap, err := writeRegistrySnapshot(reg, m, *modelID, modelDir, idx)
	if err != nil {
		logger.Fatalf("final snapshot: %v", err)
	}
	logger.Printf("final snapshot: %s", path)
	mr.Enqueue(path)
	if archived, err := archive.ArchiveMilestone(modelDir, path, snap); err != nil {
		logger.Printf("archive: %v", err)
	} else {
		logger.Printf("archived: %s", archived)
		mr.Enqueue(archived)
	}
}

type updateSink struct {
	log    *persistlog.UpdateLogger
	idx    *indexdb.SQLiteIndex
	obs    *observer.Server
	logger *log.Logger
}

func (s *updateSink) CommittedUpdate(agentID string, tick uint64, st *model.State) {
	if err := s.log.WriteUpdate(agentID, tick, st); err != nil {
		s.logger.Printf("update log: %v", err)
	}
	if s.idx != nil {
		s.idx.WriteUpdate(indexdb.RowFromState(agentID, tick, st))
	}
	if s.obs != nil {
		s.obs.Publish(agentID, tick, st)
	}
}

func snapshotLoop(ctx context.Context, reg *registry.Registry, m *model.Model, modelID, modelDir string, every time.Duration, keep int, idx *indexdb.SQLiteIndex, mr *mirrorRuntime, logger *log.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, _, err := writeRegistrySnapshot(reg, m, modelID, modelDir, idx)
			if err != nil {
				logger.Printf("snapshot: %v", err)
				continue
			}
			logger.Printf("snapshot: %s", path)
			mr.Enqueue(path)
			if removed, err := archive.PruneSnapshots(filepath.Dir(path), keep); err != nil {
				logger.Printf("prune snapshots: %v", err)
			} else if len(removed) > 0 {
				logger.Printf("pruned %d old snapshots", len(removed))
			}
		}
	}
}

func writeRegistrySnapshot(reg *registry.Registry, m *model.Model, modelID, modelDir string, idx *indexdb.SQLiteIndex) (string, snapshot.SnapshotV1, error) {
	states, names, next := reg.Export()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:     snapshot.FormatVersion,
			ModelID:     modelID,
			SavedUnixMs: time.Now().UnixMilli(),
		},
		LatentDim:  m.Cfg.LatentDim,
		VisualDim:  m.Cfg.VisualDim,
		WeightSeed: m.Seed,
		NextAgent:  next,
	}
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.Agents = append(snap.Agents, snapshot.AgentV1{ID: id, Name: names[id], State: states[id]})
	}

	path := filepath.Join(modelDir, "snapshots",
		"registry-"+time.Now().UTC().Format("20060102-150405")+".snap.zst")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", snap, err
	}
	if idx != nil {
		idx.RecordSnapshot(path, len(snap.Agents), snap.LatentDim)
	}
	return path, snap, nil
}

func restoreRegistry(reg *registry.Registry, snap snapshot.SnapshotV1) error {
	states := make(map[string]*model.State, len(snap.Agents))
	names := make(map[string]string, len(snap.Agents))
	for _, a := range snap.Agents {
		states[a.ID] = a.State
		names[a.ID] = a.Name
	}
	return reg.Restore(states, names, snap.NextAgent)
}

func latestSnapshot(modelDir string) string {
	dir := filepath.Join(modelDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "registry-") && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}
