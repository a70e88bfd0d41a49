// Package supervisor manages the agent's registration with the OS service
// manager (Windows SCM, systemd, launchd) and the service run-mode entry
// point. Platforms without a detectable service manager get an
// implementation that rejects everything except run, which degrades to
// running the payload in the foreground.
package supervisor

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	"github.com/pushmon/pushmon/internal/config"
	"github.com/pushmon/pushmon/internal/shutdown"
	"github.com/rs/zerolog"
)

const (
	serviceName        = "pushmon"
	serviceDisplayName = "pushmon heartbeat agent"
	serviceDescription = "Pushes periodic liveness heartbeats to a monitoring endpoint."
)

// ErrUnsupported is returned for service commands on platforms without a
// native service manager.
var ErrUnsupported = errors.New("service commands are not supported on this platform")

// Command is a service lifecycle action.
type Command string

const (
	CommandInstall   Command = "install"
	CommandUninstall Command = "uninstall"
	CommandStart     Command = "start"
	CommandStop      Command = "stop"
	CommandRun       Command = "run"
)

// ParseCommand maps the configured service string onto a Command.
func ParseCommand(s string) (Command, error) {
	switch Command(s) {
	case CommandInstall, CommandUninstall, CommandStart, CommandStop, CommandRun:
		return Command(s), nil
	}
	return "", fmt.Errorf("unknown service command %q", s)
}

// Payload is the long-running work a service supervises.
type Payload interface {
	Start() error
	Stop() error
}

// Supervisor is the platform capability for service lifecycle management.
type Supervisor interface {
	Install() error
	Uninstall() error
	Start() error
	Stop() error
	Run() error
}

// Dispatch executes one lifecycle command against the supervisor.
func Dispatch(s Supervisor, cmd Command) error {
	switch cmd {
	case CommandInstall:
		return s.Install()
	case CommandUninstall:
		return s.Uninstall()
	case CommandStart:
		return s.Start()
	case CommandStop:
		return s.Stop()
	case CommandRun:
		return s.Run()
	}
	return fmt.Errorf("unknown service command %q", cmd)
}

// systemService is the slice of the OS service binding the supervisor uses.
type systemService interface {
	Install() error
	Uninstall() error
	Start() error
	Stop() error
	Run() error
	Status() (service.Status, error)
}

// program adapts the payload to the service manager's control callbacks.
// Start must not block; Stop translates the supervisor's stop request into
// the shared shutdown token and waits for the drain.
type program struct {
	payload Payload
	coord   *shutdown.Coordinator
	logger  zerolog.Logger
}

func (p *program) Start(_ service.Service) error {
	p.logger.Info().Msg("service start requested")
	return p.payload.Start()
}

func (p *program) Stop(_ service.Service) error {
	p.logger.Info().Msg("service stop requested")
	p.coord.Trigger()
	return p.payload.Stop()
}

// New selects the supervisor implementation for this platform. The payload
// is registered to run with the current configuration re-rendered as
// arguments plus "--service run".
func New(cfg *config.Config, payload Payload, coord *shutdown.Coordinator, logger zerolog.Logger) (Supervisor, error) {
	if service.ChosenSystem() == nil {
		logger.Debug().Msg("no native service manager detected")
		return &unsupportedSupervisor{payload: payload, coord: coord}, nil
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		Arguments:   append(cfg.Args(), "--service", "run"),
	}

	svc, err := service.New(&program{payload: payload, coord: coord, logger: logger}, svcConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to service manager: %w", err)
	}
	return &systemSupervisor{svc: svc, logger: logger}, nil
}

// systemSupervisor drives a native service manager. Install and Uninstall
// are idempotent: repeating either reports success instead of erroring.
type systemSupervisor struct {
	svc    systemService
	logger zerolog.Logger
}

func (s *systemSupervisor) Install() error {
	if _, err := s.svc.Status(); err == nil {
		s.logger.Info().Msg("service already installed")
		return nil
	}
	if err := s.svc.Install(); err != nil {
		return fmt.Errorf("install service: %w", err)
	}
	s.logger.Info().Msg("service installed")
	return nil
}

func (s *systemSupervisor) Uninstall() error {
	status, err := s.svc.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		s.logger.Info().Msg("service not installed, nothing to uninstall")
		return nil
	}
	if err == nil && status == service.StatusRunning {
		s.logger.Warn().Msg("stopping running service before uninstall")
		if err := s.svc.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("could not stop service before uninstall")
		}
	}
	if err := s.svc.Uninstall(); err != nil {
		return fmt.Errorf("uninstall service: %w", err)
	}
	s.logger.Info().Msg("service uninstalled")
	return nil
}

func (s *systemSupervisor) Start() error {
	if status, err := s.svc.Status(); err == nil && status == service.StatusRunning {
		s.logger.Info().Msg("service already running")
		return nil
	}
	if err := s.svc.Start(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.logger.Info().Msg("service started")
	return nil
}

func (s *systemSupervisor) Stop() error {
	if status, err := s.svc.Status(); err == nil && status == service.StatusStopped {
		s.logger.Info().Msg("service already stopped")
		return nil
	}
	if err := s.svc.Stop(); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	s.logger.Info().Msg("service stopped")
	return nil
}

// Run hands control to the service manager's dispatcher, which calls back
// into program.Start and program.Stop. When invoked from an interactive
// terminal the binding runs the payload in the foreground instead.
func (s *systemSupervisor) Run() error {
	if err := s.svc.Run(); err != nil {
		return fmt.Errorf("run service: %w", err)
	}
	return nil
}

// unsupportedSupervisor rejects every command except run, which degrades to
// foreground execution driven by the shared shutdown token.
type unsupportedSupervisor struct {
	payload Payload
	coord   *shutdown.Coordinator
}

func (u *unsupportedSupervisor) Install() error   { return ErrUnsupported }
func (u *unsupportedSupervisor) Uninstall() error { return ErrUnsupported }
func (u *unsupportedSupervisor) Start() error     { return ErrUnsupported }
func (u *unsupportedSupervisor) Stop() error      { return ErrUnsupported }

func (u *unsupportedSupervisor) Run() error {
	if err := u.payload.Start(); err != nil {
		return err
	}
	<-u.coord.Done()
	return u.payload.Stop()
}
