package supervisor

import (
	"errors"
	"testing"
	"time"

	"github.com/kardianos/service"
	"github.com/pushmon/pushmon/internal/shutdown"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockService is a testify mock over the OS service binding.
type mockService struct {
	mock.Mock
}

func (m *mockService) Install() error   { return m.Called().Error(0) }
func (m *mockService) Uninstall() error { return m.Called().Error(0) }
func (m *mockService) Start() error     { return m.Called().Error(0) }
func (m *mockService) Stop() error      { return m.Called().Error(0) }
func (m *mockService) Run() error       { return m.Called().Error(0) }

func (m *mockService) Status() (service.Status, error) {
	args := m.Called()
	return args.Get(0).(service.Status), args.Error(1)
}

// fakePayload counts lifecycle calls.
type fakePayload struct {
	started int
	stopped int
}

func (p *fakePayload) Start() error {
	p.started++
	return nil
}

func (p *fakePayload) Stop() error {
	p.stopped++
	return nil
}

func TestParseCommand(t *testing.T) {
	for _, valid := range []string{"install", "uninstall", "start", "stop", "run"} {
		cmd, err := ParseCommand(valid)
		assert.NoError(t, err)
		assert.Equal(t, Command(valid), cmd)
	}

	_, err := ParseCommand("restart")
	assert.Error(t, err)
}

func TestSystemSupervisor_InstallIsIdempotent(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	// First install: not yet registered.
	svc.On("Status").Return(service.StatusUnknown, service.ErrNotInstalled).Once()
	svc.On("Install").Return(nil).Once()
	require.NoError(t, s.Install())

	// Second install: already registered, no second registration attempt.
	svc.On("Status").Return(service.StatusStopped, nil).Once()
	require.NoError(t, s.Install())

	svc.AssertExpectations(t)
	svc.AssertNumberOfCalls(t, "Install", 1)
}

func TestSystemSupervisor_UninstallOnNeverInstalledSucceeds(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	svc.On("Status").Return(service.StatusUnknown, service.ErrNotInstalled).Once()

	require.NoError(t, s.Uninstall())
	svc.AssertNotCalled(t, "Uninstall")
}

func TestSystemSupervisor_UninstallStopsRunningService(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	svc.On("Status").Return(service.StatusRunning, nil).Once()
	svc.On("Stop").Return(nil).Once()
	svc.On("Uninstall").Return(nil).Once()

	require.NoError(t, s.Uninstall())
	svc.AssertExpectations(t)
}

func TestSystemSupervisor_StartAndStopSkipNoOps(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	svc.On("Status").Return(service.StatusRunning, nil).Once()
	require.NoError(t, s.Start())
	svc.AssertNotCalled(t, "Start")

	svc.On("Status").Return(service.StatusStopped, nil).Once()
	require.NoError(t, s.Stop())
	svc.AssertNotCalled(t, "Stop")
}

func TestSystemSupervisor_StartAndStopDelegate(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	svc.On("Status").Return(service.StatusStopped, nil).Once()
	svc.On("Start").Return(nil).Once()
	require.NoError(t, s.Start())

	svc.On("Status").Return(service.StatusRunning, nil).Once()
	svc.On("Stop").Return(nil).Once()
	require.NoError(t, s.Stop())

	svc.AssertExpectations(t)
}

func TestSystemSupervisor_ErrorsAreWrapped(t *testing.T) {
	svc := new(mockService)
	s := &systemSupervisor{svc: svc, logger: zerolog.Nop()}

	boom := errors.New("access denied")
	svc.On("Status").Return(service.StatusUnknown, service.ErrNotInstalled).Once()
	svc.On("Install").Return(boom).Once()

	err := s.Install()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestUnsupportedSupervisor_RejectsManagementCommands(t *testing.T) {
	u := &unsupportedSupervisor{payload: &fakePayload{}, coord: shutdown.NewCoordinator()}

	assert.ErrorIs(t, u.Install(), ErrUnsupported)
	assert.ErrorIs(t, u.Uninstall(), ErrUnsupported)
	assert.ErrorIs(t, u.Start(), ErrUnsupported)
	assert.ErrorIs(t, u.Stop(), ErrUnsupported)
}

func TestUnsupportedSupervisor_RunDegradesToForeground(t *testing.T) {
	payload := &fakePayload{}
	coord := shutdown.NewCoordinator()
	u := &unsupportedSupervisor{payload: payload, coord: coord}

	done := make(chan error, 1)
	go func() { done <- u.Run() }()

	time.Sleep(20 * time.Millisecond)
	coord.Trigger()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after shutdown trigger")
	}
	assert.Equal(t, 1, payload.started)
	assert.Equal(t, 1, payload.stopped)
}

func TestDispatch(t *testing.T) {
	u := &unsupportedSupervisor{payload: &fakePayload{}, coord: shutdown.NewCoordinator()}

	assert.ErrorIs(t, Dispatch(u, CommandInstall), ErrUnsupported)
	assert.ErrorIs(t, Dispatch(u, CommandUninstall), ErrUnsupported)
	assert.ErrorIs(t, Dispatch(u, CommandStart), ErrUnsupported)
	assert.ErrorIs(t, Dispatch(u, CommandStop), ErrUnsupported)
	assert.Error(t, Dispatch(u, Command("bogus")))
}

func TestProgram_StopTriggersShutdown(t *testing.T) {
	payload := &fakePayload{}
	coord := shutdown.NewCoordinator()
	p := &program{payload: payload, coord: coord, logger: zerolog.Nop()}

	require.NoError(t, p.Start(nil))
	assert.False(t, coord.Triggered())

	require.NoError(t, p.Stop(nil))
	assert.True(t, coord.Triggered())
	assert.Equal(t, 1, payload.stopped)
}
