package compositor

import (
	"log/slog"
	"os/exec"
)

// DisplayEnv is the environment variable launched clients read to find the
// compositor's display socket.
const DisplayEnv = "WAYVIL_DISPLAY"

// Launcher starts external application processes for LaunchApp commands.
// Spawned processes inherit the host environment plus DisplayEnv pointing at
// the compositor's socket; their stdio is not captured. Exits are reaped in
// the background and reported on Exits for the compositor loop to consume.
type Launcher struct {
	socketPath string
	log        *slog.Logger
	exits      chan int

	// startFn is a test hook; production code uses (*exec.Cmd).Start.
	startFn func(cmd *exec.Cmd) error
}

// NewLauncher creates a launcher that points spawned clients at socketPath.
func NewLauncher(socketPath string, log *slog.Logger) *Launcher {
	if log == nil {
		log = slog.Default()
	}
	return &Launcher{
		socketPath: socketPath,
		log:        log,
		exits:      make(chan int, 16),
		startFn:    func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Exits delivers the pid of every spawned process that has terminated.
func (l *Launcher) Exits() <-chan int {
	return l.exits
}

// Spawn starts executable with args and returns its pid. Missing executable,
// permission errors and OS-level start failures surface immediately as a
// SpawnError; they are never retried.
func (l *Launcher) Spawn(executable string, args []string) (int, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return 0, &SpawnError{Executable: executable, Err: err}
	}

	cmd := exec.Command(path, args...)
	cmd.Env = append(cmd.Environ(), DisplayEnv+"="+l.socketPath)

	if err := l.startFn(cmd); err != nil {
		return 0, &SpawnError{Executable: executable, Err: err}
	}

	pid := cmd.Process.Pid
	l.log.Info("spawned client", "executable", executable, "pid", pid)

	// Reap in the background so exited clients never become zombies. The
	// exit notification lets the loop evict launch records early.
	go func() {
		err := cmd.Wait()
		if err != nil {
			l.log.Debug("client exited", "pid", pid, "err", err)
		}
		select {
		case l.exits <- pid:
		default:
			// Loop is gone or flooded; the record will expire by timeout.
		}
	}()

	return pid, nil
}
