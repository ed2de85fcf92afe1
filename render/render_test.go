package render

import (
	"testing"

	"github.com/mumoshu/prsync/config"
	"github.com/stretchr/testify/require"
)

func TestNewProposal(t *testing.T) {
	data := Data{
		Source:  "envs/staging",
		Target:  "envs/production",
		Changed: []string{"clusters/kafka/main.tf", "service-accounts.tf"},
		Commit:  "deadbeef",
	}

	t.Run("defaults", func(t *testing.T) {
		p, err := NewProposal(nil, data)
		require.NoError(t, err)

		require.Equal(t, "Promote envs/staging to envs/production", p.Title)
		require.Contains(t, p.Body, "created automatically by prsync")
		require.Contains(t, p.Body, "- `clusters/kafka/main.tf`")
		require.Contains(t, p.Body, "- `service-accounts.tf`")
		require.Contains(t, p.Body, "Promoted as of commit deadbeef.")
	})

	t.Run("no commit known", func(t *testing.T) {
		d := data
		d.Commit = ""

		p, err := NewProposal(nil, d)
		require.NoError(t, err)

		require.NotContains(t, p.Body, "Promoted as of commit")
	})

	t.Run("custom templates", func(t *testing.T) {
		pr := &config.PullRequest{
			TitleTemplate: "chore: promote {{ .Target }}",
			BodyTemplate:  "{{ len .Changed }} files changed",
		}

		p, err := NewProposal(pr, data)
		require.NoError(t, err)

		require.Equal(t, "chore: promote envs/production", p.Title)
		require.Equal(t, "2 files changed", p.Body)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := NewProposal(nil, data)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := NewProposal(nil, data)
			require.NoError(t, err)
			require.Equal(t, first, again)
		}
	})

	t.Run("invalid template", func(t *testing.T) {
		pr := &config.PullRequest{
			TitleTemplate: "{{ .Nope",
		}

		_, err := NewProposal(pr, data)
		require.Error(t, err)
	})
}
