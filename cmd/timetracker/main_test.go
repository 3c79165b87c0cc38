package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectDayArgs(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "bare date",
			in:   []string{"timetracker", "2026-03-10"},
			want: []string{"timetracker", "preview", "--day", "2026-03-10"},
		},
		{
			name: "date after persistent flag",
			in:   []string{"timetracker", "--config", "/tmp/c.yaml", "2026-03-10"},
			want: []string{"timetracker", "--config", "/tmp/c.yaml", "preview", "--day", "2026-03-10"},
		},
		{
			name: "date after equals-form flag",
			in:   []string{"timetracker", "--output=json", "2026-03-10"},
			want: []string{"timetracker", "--output=json", "preview", "--day", "2026-03-10"},
		},
		{
			name: "date after double dash",
			in:   []string{"timetracker", "--", "2026-03-10"},
			want: []string{"timetracker", "--", "preview", "--day", "2026-03-10"},
		},
		{
			name: "subcommand untouched",
			in:   []string{"timetracker", "entries"},
			want: []string{"timetracker", "entries"},
		},
		{
			name: "flag value that looks positional is not a date",
			in:   []string{"timetracker", "--config", "2026-03-10.yaml", "serve"},
			want: []string{"timetracker", "--config", "2026-03-10.yaml", "serve"},
		},
		{
			name: "no args",
			in:   []string{"timetracker"},
			want: []string{"timetracker"},
		},
		{
			name: "malformed date is a subcommand attempt",
			in:   []string{"timetracker", "2026-3-10"},
			want: []string{"timetracker", "2026-3-10"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rewriteDirectDayArgs(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
