package deleter

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
)

type fakeRemover struct {
	status  map[string]int
	deleted []string
	probed  []string
}

func (f *fakeRemover) code(key string) int {
	if s, ok := f.status[key]; ok {
		return s
	}
	return http.StatusNoContent
}

func (f *fakeRemover) Delete(_ context.Context, key string) (int, error) {
	f.deleted = append(f.deleted, key)
	return f.code(key), nil
}

func (f *fakeRemover) Probe(_ context.Context, key string) (int, error) {
	f.probed = append(f.probed, key)
	return http.StatusOK, nil
}

var list = []string{
	"# header",
	"/npm-dev/a.tgz",
	"",
	"/api/storage/npm-dev/b.tgz",
	"/npm-dev/c.tgz",
}

func TestNew_EnforceNeedsCredentials(t *testing.T) {
	if _, err := New(&fakeRemover{}, Config{Enforce: true}, nil, nil); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("New() error = %v, want ErrMissingCredentials", err)
	}
	if _, err := New(&fakeRemover{}, Config{}, nil, nil); err != nil {
		t.Errorf("New() dry run error = %v", err)
	}
}

func TestRun_Modes(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		status      map[string]int
		wantDeleted []string
		wantProbed  []string
		wantCounts  map[Action]int
	}{
		{
			name:       "plan only",
			cfg:        Config{},
			wantCounts: map[Action]int{ActionPlanned: 3},
		},
		{
			name:       "dry run probes",
			cfg:        Config{HasCredentials: true},
			wantProbed: []string{"/npm-dev/a.tgz", "/npm-dev/b.tgz", "/npm-dev/c.tgz"},
			wantCounts: map[Action]int{ActionProbed: 3},
		},
		{
			name:        "enforce continues after failure",
			cfg:         Config{Enforce: true, HasCredentials: true},
			status:      map[string]int{"/npm-dev/a.tgz": http.StatusBadRequest},
			wantDeleted: []string{"/npm-dev/a.tgz", "/npm-dev/b.tgz", "/npm-dev/c.tgz"},
			wantCounts:  map[Action]int{ActionDeleted: 2, ActionFailed: 1},
		},
		{
			name:        "delete one stops after first success",
			cfg:         Config{Enforce: true, HasCredentials: true, DeleteOne: true},
			status:      map[string]int{"/npm-dev/a.tgz": http.StatusNotFound},
			wantDeleted: []string{"/npm-dev/a.tgz", "/npm-dev/b.tgz"},
			wantCounts:  map[Action]int{ActionDeleted: 1, ActionFailed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := &fakeRemover{status: tt.status}
			e, err := New(rm, tt.cfg, nil, nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			sum, err := e.Run(context.Background(), list)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !slices.Equal(rm.deleted, tt.wantDeleted) {
				t.Errorf("deleted = %v, want %v", rm.deleted, tt.wantDeleted)
			}
			if !slices.Equal(rm.probed, tt.wantProbed) {
				t.Errorf("probed = %v, want %v", rm.probed, tt.wantProbed)
			}
			for action, want := range tt.wantCounts {
				if got := sum.Count(action); got != want {
					t.Errorf("Count(%s) = %d, want %d", action, got, want)
				}
			}
		})
	}
}

func TestRun_Confirmer(t *testing.T) {
	answers := map[string]Answer{
		"/npm-dev/a.tgz": AnswerNo,
		"/npm-dev/b.tgz": AnswerYes,
		"/npm-dev/c.tgz": AnswerQuit,
	}
	var asked []string
	confirm := ConfirmerFunc(func(_ context.Context, key string) (Answer, error) {
		asked = append(asked, key)
		return answers[key], nil
	})

	rm := &fakeRemover{}
	e, err := New(rm, Config{Enforce: true, HasCredentials: true, Confirmer: confirm}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := e.Run(context.Background(), append(list, "/npm-dev/d.tgz"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !sum.Quit {
		t.Error("Quit = false, want true")
	}
	if !slices.Equal(rm.deleted, []string{"/npm-dev/b.tgz"}) {
		t.Errorf("deleted = %v", rm.deleted)
	}
	if len(asked) != 3 {
		t.Errorf("asked = %v, want 3 prompts", asked)
	}
	if sum.Count(ActionDeclined) != 1 || len(sum.Results) != 2 {
		t.Errorf("Results = %+v", sum.Results)
	}
}

func TestRun_ConfirmerError(t *testing.T) {
	boom := errors.New("tty closed")
	confirm := ConfirmerFunc(func(context.Context, string) (Answer, error) { return AnswerNo, boom })
	e, _ := New(&fakeRemover{}, Config{Enforce: true, HasCredentials: true, Confirmer: confirm}, nil, nil)
	if _, err := e.Run(context.Background(), list); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestSuccess(t *testing.T) {
	for status, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 404: false} {
		if got := Success(status); got != want {
			t.Errorf("Success(%d) = %v, want %v", status, got, want)
		}
	}
}
