package appium

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/mobilekit/component"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/httpclient"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/process"
	"github.com/kbukum/mobilekit/resilience"
	"github.com/kbukum/mobilekit/util"
)

// LocalServiceName is the component name of the local Appium server.
const LocalServiceName = "appium"

const statusPollInterval = 500 * time.Millisecond

var (
	_ component.Component   = (*LocalService)(nil)
	_ component.Describable = (*LocalService)(nil)
)

// LocalService runs an Appium server on this machine for local sessions.
type LocalService struct {
	settings config.LocalServiceSettings
	client   *httpclient.Client
	log      *logger.Logger

	mu   sync.Mutex
	proc *process.Process
}

// NewLocalService creates the service. Nothing is started until Start.
func NewLocalService(settings config.LocalServiceSettings) (*LocalService, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: settings.URL(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.InvalidConfig(err.Error())
	}
	return &LocalService{
		settings: settings,
		client:   client,
		log:      logger.Get(logger.ComponentLocalService),
	}, nil
}

// Name implements component.Component.
func (s *LocalService) Name() string { return LocalServiceName }

// URL returns the server URL sessions are created on.
func (s *LocalService) URL() string { return s.settings.URL() }

// Start launches the server and waits until /status reports ready.
func (s *LocalService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil && !s.proc.Exited() {
		return nil
	}

	s.logVersion(ctx)

	out := &lineLogger{log: s.log}
	proc, err := process.Start(ctx, process.Command{
		Binary: s.settings.Binary,
		Args:   s.arguments(),
		Env:    s.env(),
		Stdout: out,
		Stderr: out,
	})
	if err != nil {
		return err
	}
	s.log.Info("starting appium server", logger.Fields(
		"pid", proc.Pid(),
		logger.FieldURL, s.URL(),
	))

	wait := resilience.WaitConfig{Timeout: s.settings.StartTimeout, PollingInterval: statusPollInterval}
	err = resilience.WaitFor(ctx, wait, func(ctx context.Context) (bool, error) {
		if proc.Exited() {
			return false, errors.Process(s.settings.Binary, fmt.Errorf("exited before becoming ready"))
		}
		return s.ready(ctx), nil
	})
	if err != nil {
		_ = proc.Stop(context.Background())
		if stderrors.Is(err, resilience.ErrWaitTimeout) {
			return errors.Timeout("appium server start").WithCause(err).WithDetail("url", s.URL())
		}
		return err
	}

	s.proc = proc
	s.log.Info("appium server ready", logger.Fields(
		logger.FieldURL, s.URL(),
		logger.FieldDuration, proc.Uptime().Milliseconds(),
	))
	return nil
}

// Stop terminates the server process group.
func (s *LocalService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return nil
	}
	err := s.proc.Stop(ctx)
	s.proc = nil
	return err
}

// Health implements component.Component.
func (s *LocalService) Health(ctx context.Context) component.Health {
	h := component.Health{Name: LocalServiceName, Status: component.StatusHealthy}
	s.mu.Lock()
	running := s.proc != nil && !s.proc.Exited()
	s.mu.Unlock()

	switch {
	case !running:
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	case !s.ready(ctx):
		h.Status = component.StatusDegraded
		h.Message = "not ready"
	}
	return h
}

// Describe implements component.Describable.
func (s *LocalService) Describe() component.Description {
	details := s.settings.Address()
	s.mu.Lock()
	if s.proc != nil {
		details += " pid=" + strconv.Itoa(s.proc.Pid())
	}
	s.mu.Unlock()
	return component.Description{Type: "appium", Details: details}
}

func (s *LocalService) ready(ctx context.Context) bool {
	resp, err := httpclient.Get[struct {
		Value struct {
			Ready bool `json:"ready"`
		} `json:"value"`
	}](s.client, ctx, "/status")
	return err == nil && resp.Data.Value.Ready
}

func (s *LocalService) arguments() []string {
	args := []string{"--address", s.settings.Host, "--port", strconv.Itoa(s.settings.Port)}
	if s.settings.BasePath != "" {
		args = append(args, "--base-path", s.settings.BasePath)
	}
	return append(args, s.settings.Arguments...)
}

func (s *LocalService) env() []string {
	if len(s.settings.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(s.settings.Env))
	for k, v := range s.settings.Env {
		env = append(env, util.EnvPair(k, v))
	}
	sort.Strings(env)
	return env
}

// logVersion logs the server version. Failure is not fatal; the start that
// follows reports a missing binary.
func (s *LocalService) logVersion(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := process.Run(ctx, process.Command{Binary: s.settings.Binary, Args: []string{"--version"}})
	if err != nil {
		s.log.Debug("appium version unavailable", logger.ErrorFields("version", err))
		return
	}
	s.log.Debug("appium version", logger.Fields("version", strings.TrimSpace(string(result.Stdout))))
}

// lineLogger writes server output to the debug log, one entry per line.
type lineLogger struct {
	log *logger.Logger
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			return len(p), nil
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			l.log.Debug(line)
		}
	}
}
