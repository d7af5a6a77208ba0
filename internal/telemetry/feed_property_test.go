package telemetry

import (
	"fmt"
	"testing"

	"github.com/bnema/agentfeed/internal/domain"
	"pgregory.net/rapid"
)

func genRecord(t *rapid.T, label string) domain.ActionRecord {
	agents := domain.KnownAgentTypes()
	r := domain.ActionRecord{
		ID:         domain.ActionID(fmt.Sprintf("act-%d", rapid.IntRange(0, 30).Draw(t, label+"-id"))),
		AgentType:  rapid.SampledFrom(agents).Draw(t, label+"-agent"),
		ActionType: "step",
		Success:    rapid.Bool().Draw(t, label+"-success"),
	}
	if rapid.Bool().Draw(t, label+"-timed") {
		r.ExecutionTime = domain.Seconds(rapid.Float64Range(0, 10).Draw(t, label+"-time"))
	}
	return r
}

func TestFeedPropertyFirstDeliveryWinsAndOrderIsPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) domain.ActionRecord {
			return genRecord(t, "r")
		}), 0, 60).Draw(t, "records")

		feed := newTestFeed(0)
		var expected []domain.ActionID
		seen := map[domain.ActionID]bool{}
		want := domain.MetricsSnapshot{}
		for _, r := range records {
			if _, err := feed.Apply(domain.ActionEvent(r)); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			expected = append(expected, r.ID)
			want = want.Apply(r)
		}

		got := ids(feed.All())
		if len(got) != len(expected) {
			t.Fatalf("len = %d, want %d", len(got), len(expected))
		}
		for i := range got {
			if got[i] != expected[i] {
				t.Fatalf("position %d = %s, want %s", i, got[i], expected[i])
			}
		}
		if feed.Metrics() != want {
			t.Fatalf("metrics = %+v, want %+v", feed.Metrics(), want)
		}
	})
}

func TestFeedPropertyFilterIsPureSubsequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) domain.ActionRecord {
			return genRecord(t, "r")
		}), 0, 40).Draw(t, "records")
		filter := rapid.SampledFrom([]domain.Filter{
			domain.FilterAll(),
			domain.FilterSuccessOnly(),
			domain.FilterErrorsOnly(),
			domain.FilterByAgent(domain.AgentCoding),
		}).Draw(t, "filter")

		feed := newTestFeed(0)
		for _, r := range records {
			if _, err := feed.Apply(domain.ActionEvent(r)); err != nil {
				t.Fatalf("apply: %v", err)
			}
		}
		before := feed.All()
		metrics := feed.Metrics()

		view := feed.View(filter, 0)

		j := 0
		for _, r := range before {
			if !filter.Match(r) {
				continue
			}
			if j >= len(view) || view[j].ID != r.ID {
				t.Fatalf("view is not the ordered matching subsequence")
			}
			j++
		}
		if j != len(view) {
			t.Fatalf("view has %d extra records", len(view)-j)
		}
		if feed.Len() != len(before) || feed.Metrics() != metrics {
			t.Fatalf("filtering mutated the feed")
		}
	})
}

func TestFeedPropertyBoundedLogKeepsNewest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		n := rapid.IntRange(0, 30).Draw(t, "n")

		feed := newTestFeed(capacity)
		for i := 0; i < n; i++ {
			if _, err := feed.Apply(domain.ActionEvent(record(fmt.Sprintf("a-%d", i), true))); err != nil {
				t.Fatalf("apply: %v", err)
			}
		}

		want := min(n, capacity)
		got := feed.All()
		if len(got) != want {
			t.Fatalf("len = %d, want %d", len(got), want)
		}
		for i, r := range got {
			expected := domain.ActionID(fmt.Sprintf("a-%d", n-want+i))
			if r.ID != expected {
				t.Fatalf("position %d = %s, want %s", i, r.ID, expected)
			}
		}
		if feed.Metrics().TotalActions != int64(n) {
			t.Fatalf("metrics lost evicted records")
		}
	})
}
