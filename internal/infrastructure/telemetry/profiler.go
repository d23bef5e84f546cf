// Package telemetry provides Pyroscope continuous profiling integration.
package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// defaultProfileTypes covers CPU, heap and goroutine profiles. Mutex and
// block profiles stay opt-in because their runtime sampling is not free.
var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// ProfilerConfig configures continuous profiling against a Pyroscope server.
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string // e.g. "http://pyroscope:4040"
	ApplicationName string

	// Basic auth is only needed for Grafana Cloud.
	BasicAuthUser     string
	BasicAuthPassword string

	// ProfileTypes selects what to collect. Empty means defaultProfileTypes.
	ProfileTypes []pyroscope.ProfileType

	MutexProfileFraction int // defaults to 5 when mutex profiles are selected
	BlockProfileRate     int // defaults to 5 when block profiles are selected
	DisableGCRuns        bool
}

// Profiler manages the lifecycle of the Pyroscope agent. A disabled
// config yields a valid no-op Profiler so callers never branch.
type Profiler struct {
	agent   *pyroscope.Profiler
	logger  *zap.Logger
	config  ProfilerConfig
	mu      sync.Mutex
	stopped bool
}

// NewProfiler starts the Pyroscope agent, or returns a no-op Profiler
// when cfg.Enabled is false.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}

	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled, using no-op profiler")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	types := cfg.ProfileTypes
	if len(types) == 0 {
		types = defaultProfileTypes
	}
	applyRuntimeSampling(cfg, types, logger)

	agent, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            pyroscopeZapAdapter{logger.Named("pyroscope").Sugar()},
		Tags:              deploymentTags(),
		ProfileTypes:      types,
		DisableGCRuns:     cfg.DisableGCRuns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.agent = agent

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

// applyRuntimeSampling turns on the runtime hooks mutex and block
// profiles depend on. Without these the agent uploads empty profiles.
func applyRuntimeSampling(cfg ProfilerConfig, types []pyroscope.ProfileType, logger *zap.Logger) {
	if selectsAny(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration) {
		fraction := cfg.MutexProfileFraction
		if fraction <= 0 {
			fraction = 5
		}
		runtime.SetMutexProfileFraction(fraction)
		logger.Debug("Mutex profiling enabled", zap.Int("fraction", fraction))
	}
	if selectsAny(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration) {
		rate := cfg.BlockProfileRate
		if rate <= 0 {
			rate = 5
		}
		runtime.SetBlockProfileRate(rate)
		logger.Debug("Block profiling enabled", zap.Int("rate", rate))
	}
}

func selectsAny(types []pyroscope.ProfileType, wanted ...pyroscope.ProfileType) bool {
	return slices.ContainsFunc(wanted, func(w pyroscope.ProfileType) bool {
		return slices.Contains(types, w)
	})
}

// deploymentTags labels profiles with where the process runs so flame
// graphs can be filtered per pod in multi-replica deployments.
func deploymentTags() map[string]string {
	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		tags["pod"] = pod
	}
	return tags
}

// Stop flushes pending profiles and stops the agent. Safe to call more
// than once. The Pyroscope SDK's Stop takes no context; it relies on
// internal timeouts against an unresponsive server.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.agent == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true

	if err := p.agent.Stop(); err != nil {
		p.logger.Error("Error stopping profiler", zap.Error(err))
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// IsEnabled reports whether the agent is actually running.
func (p *Profiler) IsEnabled() bool {
	return p.config.Enabled && p.agent != nil
}

// GetConfig returns a copy of the profiler configuration.
func (p *Profiler) GetConfig() ProfilerConfig {
	return p.config
}

// pyroscopeZapAdapter satisfies pyroscope.Logger on top of zap.
type pyroscopeZapAdapter struct {
	sugar *zap.SugaredLogger
}

func (a pyroscopeZapAdapter) Infof(format string, args ...any)  { a.sugar.Infof(format, args...) }
func (a pyroscopeZapAdapter) Debugf(format string, args ...any) { a.sugar.Debugf(format, args...) }
func (a pyroscopeZapAdapter) Errorf(format string, args ...any) { a.sugar.Errorf(format, args...) }
