package preflight

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"ipcpair/internal/ipcchan"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRendezvous opens and closes a one-shot endpoint in dir. With a fixed
// name it also reports whether another session currently holds that name.
func CheckRendezvous(dir, name string) Result {
	const label = "Rendezvous endpoint"

	probeName := strings.TrimSpace(name)
	if probeName == "" {
		probeName = "ipcpair-preflight-" + uuid.NewString()
	}
	srv, err := ipcchan.NewOneShotServer(ipcchan.ServerOptions{Dir: dir, Name: probeName})
	if err != nil {
		if errors.Is(err, ipcchan.ErrNameInUse) {
			return Result{Name: label, Detail: fmt.Sprintf("name %q is held by another session", probeName)}
		}
		return Result{Name: label, Detail: err.Error()}
	}
	token := srv.Token()
	if err := srv.Close(); err != nil {
		return Result{Name: label, Detail: fmt.Sprintf("close probe endpoint: %v", err)}
	}
	if name == "" {
		return Result{Name: label, Passed: true, Detail: "listen ok (" + dir + ")"}
	}
	return Result{Name: label, Passed: true, Detail: "listen ok (" + token + ")"}
}

// CheckChannel round-trips one message through a fresh channel.
func CheckChannel() Result {
	const label = "Channel transport"

	tx, rx, err := ipcchan.Channel()
	if err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	defer tx.Close()
	defer rx.Close()

	const probe = "preflight"
	if err := tx.Send(probe); err != nil {
		return Result{Name: label, Detail: fmt.Sprintf("send: %v", err)}
	}
	got, err := rx.Recv()
	if err != nil {
		return Result{Name: label, Detail: fmt.Sprintf("receive: %v", err)}
	}
	if got != probe {
		return Result{Name: label, Detail: fmt.Sprintf("payload mismatch: %q", got)}
	}
	return Result{Name: label, Passed: true, Detail: "seqpacket socketpair ok"}
}

// CheckExecutable verifies that command resolves to an executable file.
func CheckExecutable(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
