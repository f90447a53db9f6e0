// Package runtimeenv handles process bootstrap concerns: loading .env
// files, dropping privileges, and notifying systemd of readiness.
package runtimeenv

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/obsctl/obsctl/pkg/log"
)

// LoadEnv loads a .env file into the process environment via godotenv,
// which tolerates the fuller dotenv syntax (multiline values, export
// prefixes, comments anywhere) that the original hand-rolled parser did not.
func LoadEnv(file string) error {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(file)
}

// DropPrivileges sets the process uid/gid to the named user/group. The Go
// runtime applies the underlying syscall to every OS thread, not just the
// calling one.
func DropPrivileges(username, group string) error {
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			log.Warn("runtimeenv: group lookup failed")
			return err
		}
		gid, _ := strconv.Atoi(g.Gid)
		if err := syscall.Setgid(gid); err != nil {
			log.Warn("runtimeenv: setgid failed")
			return err
		}
	}

	if username != "" {
		u, err := user.Lookup(username)
		if err != nil {
			log.Warn("runtimeenv: user lookup failed")
			return err
		}
		uid, _ := strconv.Atoi(u.Uid)
		if err := syscall.Setuid(uid); err != nil {
			log.Warn("runtimeenv: setuid failed")
			return err
		}
	}

	return nil
}

// SystemdNotify informs systemd of process readiness via sd_notify, a
// no-op when the process was not started under systemd.
// https://www.freedesktop.org/software/systemd/man/sd_notify.html
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	_ = exec.Command("systemd-notify", args...).Run()
}
