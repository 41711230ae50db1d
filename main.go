package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"okrproject/config"
	"okrproject/database"
	"okrproject/handlers"
	"okrproject/logger"
	repository "okrproject/repositories"
	"okrproject/routes"
	services "okrproject/services"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "okrd",
		Short:        "OKR progress and rollup service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), indexesCmd(), recomputeCmd())
	return root
}

// app is everything a subcommand needs after startup.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   repository.Store
	db      *mongo.Database
	engine  *services.Engine
	cleanup func()
}

func bootstrap(ctx context.Context, requireMongo bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if requireMongo {
		cfg.Storage = config.StorageMongo
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, cleanup: log.Sync}
	switch cfg.Storage {
	case config.StorageMemory:
		a.store = repository.NewMemoryStore().Store()
		log.Warn("using in-memory storage, data is lost on exit")
	default:
		client, err := connectMongo(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, err
		}
		a.db = client.Database(cfg.MongoDatabase)
		a.store = repository.NewMongoStore(client, a.db)
		a.cleanup = func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("failed to disconnect from MongoDB", "error", err)
			}
			log.Sync()
		}
	}

	a.engine = services.NewEngine(a.store, services.Settings{
		Thresholds: cfg.Thresholds,
		Weights:    cfg.Weights,
	}, log)
	return a, nil
}

func connectMongo(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Info("connected to MongoDB")

	// Multi-document transactions need a replica set
	if !checkIfReplicaSet(ctx, client, log) {
		log.Warn("MongoDB is not a replica set, check-in transactions will fail")
	}
	return client, nil
}

func checkIfReplicaSet(ctx context.Context, client *mongo.Client, log *logger.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result bson.M
	err := client.Database("admin").RunCommand(ctx, bson.M{"hello": 1}).Decode(&result)
	if err != nil {
		log.Error("error checking replica set", "error", err)
		return false
	}

	if setName, exists := result["setName"]; exists {
		log.Info("part of replica set", "set_name", setName)
		return true
	}
	return false
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer a.cleanup()

			if a.db != nil {
				if err := database.CreateIndexes(ctx, a.db, a.log); err != nil {
					a.log.Warn("failed to create indexes", "error", err)
				}
			}

			opts := handlers.Options{Log: a.log, Timeout: a.cfg.RequestTimeout}
			mux := routes.SetupRoutes(routes.Handlers{
				Objectives:  handlers.NewObjectiveHandler(services.NewObjectiveService(a.engine), opts),
				KeyResults:  handlers.NewKeyResultHandler(services.NewKeyResultService(a.engine), opts),
				Initiatives: handlers.NewInitiativeHandler(services.NewInitiativeService(a.engine), opts),
				CheckIns:    handlers.NewCheckInHandler(services.NewCheckInService(a.engine), opts),
			}, a.cfg.JWTSecret, a.log)

			server := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server starting", "port", a.cfg.Port, "storage", a.cfg.Storage)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes for every collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.cleanup()
			return database.CreateIndexes(cmd.Context(), a.db, a.log)
		},
	}
}

func recomputeCmd() *cobra.Command {
	var objectiveID, asOf, editor string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute an objective subtree and its ancestors from stored key results",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := primitive.ObjectIDFromHex(objectiveID)
			if err != nil {
				return fmt.Errorf("invalid --objective %q: %w", objectiveID, err)
			}
			at := time.Now().UTC()
			if asOf != "" {
				if at, err = time.Parse(time.DateOnly, asOf); err != nil {
					return fmt.Errorf("invalid --as-of %q, want YYYY-MM-DD: %w", asOf, err)
				}
			}

			a, err := bootstrap(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			changed, err := services.NewObjectiveService(a.engine).RecomputeTree(ctx, id, at, editor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %s: %d objectives changed\n", id.Hex(), len(changed))
			return nil
		},
	}
	cmd.Flags().StringVar(&objectiveID, "objective", "", "root objective id")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&editor, "editor", "okrd", "name recorded as the updater")
	_ = cmd.MarkFlagRequired("objective")
	return cmd
}
