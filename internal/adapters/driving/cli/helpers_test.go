package cli

import (
	"bytes"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/objectstore"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/queue"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/connectors"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
)

type testEnv struct {
	store    *memory.Store
	triggers *queue.MemoryQueue
	events   *queue.MemoryQueue
	services *Services
}

// setupTestServices wires the real services over in-memory backends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	useTestConfig(t)

	clock := clockwork.NewRealClock()
	settings := domain.DefaultSyncSettings()
	settings.RetryBaseDelay = 0

	env := &testEnv{
		store:    memory.NewStore(),
		triggers: queue.NewMemoryQueue(clock, 0),
		events:   queue.NewMemoryQueue(clock, 0),
	}
	objects, err := objectstore.NewStore(afero.NewMemMapFs(), "/objects", clock)
	require.NoError(t, err)
	codec, err := queue.NewTriggerCodec()
	require.NoError(t, err)

	factory := connectors.NewDefaultFactory(auth.NewResolver(afero.NewMemMapFs()))
	relay := services.NewOutboxRelay(env.store.Outbox(), queue.NewEventPublisher(env.events), clock, 0)
	orch := services.NewSyncOrchestrator(env.store, factory, objects, settings, services.WithLandedNotifier(relay.Notify))
	connectorSvc := services.NewConnectorService(env.store.Connectors(), factory, clock)

	env.services = &Services{
		Connectors: connectorSvc,
		Sync:       orch,
		Dispatcher: services.NewDispatcher(env.triggers, codec, orch, connectorSvc, settings, clock),
		Relay:      relay,
		Triggers:   env.triggers,
		Codec:      codec,
	}

	old := wired
	wired = env.services
	t.Cleanup(func() { wired = old })
	return env
}

// useTestConfig replaces the loaded configuration with defaults.
func useTestConfig(t *testing.T) {
	t.Helper()
	old := config
	cfg := file.Default()
	config = &cfg
	t.Cleanup(func() { config = old })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetAddFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetAddFlags() {
	addFlags.id = ""
	addFlags.name = ""
	addFlags.credential = ""
	addFlags.scopeID = ""
	addFlags.visibility = string(domain.VisibilityPrivate)
	addFlags.interval = 0
	addFlags.settings = nil
	if f := connectorAddCmd.Flags().Lookup("set"); f != nil {
		f.Changed = false
	}
}
