package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "page_0.html", want: "page_0.html"},
		{name: "nested", in: "runs/abc/page_1.html", want: "runs/abc/page_1.html"},
		{name: "leading slash", in: "/pages/page_2.html", want: "pages/page_2.html"},
		{name: "dot segments", in: "./pages//page_3.html", want: "pages/page_3.html"},
		{name: "backslashes", in: `pages\page_4.html`, want: "pages/page_4.html"},
		{name: "empty", in: "  ", wantErr: true},
		{name: "root only", in: "/", wantErr: true},
		{name: "parent escape", in: "../etc/passwd", wantErr: true},
		{name: "nested escape", in: "pages/../../secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
