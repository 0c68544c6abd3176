package cmd

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

func TestDecompressCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.DecompressArgs
	}{
		{
			name: "default destination",
			args: []string{"decompress", "rates.json.gz"},
			want: domain.DecompressArgs{Source: m.Path("rates.json.gz")},
		},
		{
			name: "explicit destination",
			args: []string{"decompress", "rates.json.zst", "/data/rates.json"},
			want: domain.DecompressArgs{Source: m.Path("rates.json.zst"), Destination: m.Path("/data/rates.json")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWorkflow := withMockWorkflow(t)
			mockWorkflow.On("Decompress", mock.Anything, tt.want).Return(nil)

			cmd, _ := newTestCmd(t, newDecompressCmd(), tt.args...)
			require.NoError(t, cmd.Execute())
		})
	}
}

func TestMetaCmd(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)
	mockWorkflow.On("Meta", mock.Anything, domain.MetaArgs{
		Documents: []m.Path{"a.json", "b.json"},
	}).Return(nil)

	cmd, _ := newTestCmd(t, newMetaCmd(), "meta", "a.json", "b.json")
	require.NoError(t, cmd.Execute())
}
