// Tests for command construction and the cancellation notifier.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package supervisor

import (
	"reflect"
	"testing"
	"time"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		privileged bool
		want       []string
	}{
		{"unix unprivileged", "linux", false, []string{"sudo", "bin/sing-box", "run", "-c", "servers/vpn-us.json"}},
		{"unix root", "linux", true, []string{"bin/sing-box", "run", "-c", "servers/vpn-us.json"}},
		{"darwin unprivileged", "darwin", false, []string{"sudo", "bin/sing-box", "run", "-c", "servers/vpn-us.json"}},
		{"windows", "windows", false, []string{"bin/sing-box", "run", "-c", "servers/vpn-us.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommandLine("bin/sing-box", "servers/vpn-us.json", tt.goos, tt.privileged)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CommandLine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupervisor_Command(t *testing.T) {
	s := &Supervisor{
		Binary:     "/opt/sing-box",
		ConfigPath: "servers/vpn-vn.json",
		GOOS:       "linux",
		Privileged: func() bool { return false },
	}
	cmd := s.Command()
	want := []string{"sudo", "/opt/sing-box", "run", "-c", "servers/vpn-vn.json"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args = %v, want %v", cmd.Args, want)
	}
}

func TestNotifier_OneShot(t *testing.T) {
	n := NewNotifier()
	n.Notify()
	n.Notify()
	n.Notify()

	select {
	case <-n.C():
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}
	select {
	case <-n.C():
		t.Fatal("more than one notification buffered")
	default:
	}
}

func TestNotifier_FromAnotherGoroutine(t *testing.T) {
	n := NewNotifier()
	go n.Notify()

	select {
	case <-n.C():
	case <-time.After(2 * time.Second):
		t.Fatal("notification from goroutine not delivered")
	}
}
