package pricing

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpricing-sim/roadpricing-sim/sim/internal/testutil"
)

// fixedRand never explores and always picks the same ladder slot.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Intn(n int) int   { return r.n % n }
func (r fixedRand) Float64() float64 { return r.f }

func ptr[T any](v T) *T { return &v }

func TestClamp_BoundsPrices(t *testing.T) {
	assert.Equal(t, 0, Clamp(-1))
	assert.Equal(t, 100, Clamp(101))
	assert.Equal(t, 40, Clamp(40))

	s := &Static{base: base{}}
	s.setPrice(-1)
	assert.Equal(t, 0, s.Price(), "clamped on read")
	s.setPrice(101)
	assert.Equal(t, 100, s.NextPrice())
}

func TestStatic_PriceFollowsCapacityShare(t *testing.T) {
	m := NewManager(testutil.Diamond(t), Config{Policy: "static"}, fixedRand{})
	m.InitializePrices()

	assert.Equal(t, 22, m.Price("in"), "20 * 100 / 90")
	assert.Equal(t, 100, m.Price("bot"))

	m.EndEpisode()
	m.BeforeEpisode()
	assert.Equal(t, 22, m.Price("in"), "never changes")
}

func TestOnStep_RunningMeanEqualsArithmeticMean(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    float64
	}{
		{"occupancies", []float64{0.2, 0.4, 0.9, 0.1, 0.65}, 0.45},
		{"mixed sign", []float64{-3, 5, -0.5, 2}, 0.875},
		{"single sample", []float64{0.7}, 0.7},
		{"no samples", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// GIVEN a fresh policy base
			b := &base{}

			// WHEN every sample is observed
			for _, v := range tc.samples {
				b.OnStep(v)
			}

			// THEN the running mean matches the arithmetic mean
			assert.InDelta(t, tc.want, b.Occupancy(), 1e-12)
			assert.Equal(t, len(tc.samples), b.steps)

			// AND a new episode starts from zero
			b.BeforeEpisode()
			assert.Equal(t, 0.0, b.Occupancy())
			assert.Equal(t, 0, b.steps)
		})
	}
}

func TestGreedy_FollowsPriciestAlternativeThenHolds(t *testing.T) {
	// GIVEN "top" whose only alternative is "bot", priced 70
	m := NewManager(testutil.Diamond(t), Config{Policy: "greedy"}, fixedRand{})
	top, _ := m.Policy("top")
	bot, _ := m.Policy("bot")
	top.(*Greedy).setPrice(50)
	bot.(*Greedy).setPrice(70)

	episode := func() Decision {
		top.OnStep(0.5)
		bot.OnStep(0.3)
		d := top.OnEpisodeEnd(m.env)
		top.BeforeEpisode()
		bot.BeforeEpisode()
		return d
	}

	// WHEN top is busier than its alternative
	d := episode()

	// THEN it prices one step above the alternative's maximum
	assert.Equal(t, 80, d.NextPrice)
	assert.Equal(t, 80, top.Price())

	// AND stays there once it is already the highest
	d = episode()
	assert.Equal(t, 80, d.NextPrice)
}

func TestGreedy_UndercutsCheapestAlternative(t *testing.T) {
	m := NewManager(testutil.Diamond(t), Config{Policy: "greedy"}, fixedRand{})
	top, _ := m.Policy("top")
	bot, _ := m.Policy("bot")
	top.(*Greedy).setPrice(50)
	bot.(*Greedy).setPrice(30)

	top.OnStep(0.1)
	bot.OnStep(0.6)
	d := top.OnEpisodeEnd(m.env)

	assert.Equal(t, 20, d.NextPrice)
}

func TestGreedy_NoAlternativesNeverMoves(t *testing.T) {
	// "in" is fed by "back", which has no other outgoing segment
	m := NewManager(testutil.Diamond(t), Config{Policy: "greedy"}, fixedRand{})
	m.InitializePrices()
	in, _ := m.Policy("in")

	in.OnStep(0.9)
	d := in.OnEpisodeEnd(m.env)

	assert.Equal(t, 22, d.NextPrice)
}

func TestIncremental_StepsOwnPrice(t *testing.T) {
	m := NewManager(testutil.Diamond(t), Config{Policy: "incremental"}, fixedRand{})
	top, _ := m.Policy("top")
	bot, _ := m.Policy("bot")
	top.(*Incremental).setPrice(95)
	bot.(*Incremental).setPrice(10)

	top.OnStep(0.6)
	bot.OnStep(0.2)

	assert.Equal(t, 100, top.OnEpisodeEnd(m.env).NextPrice, "clamped at the ceiling")
	assert.Equal(t, 0, bot.OnEpisodeEnd(m.env).NextPrice)
}

func TestQLearner_EpsilonReachesFloorAfterExploration(t *testing.T) {
	l := newQLearner(QParams{
		Alpha:        ptr(0.5),
		EpsilonBegin: ptr(0.9),
		EpsilonEnd:   ptr(0.001),
		Exploration:  ptr(250),
	}, fixedRand{})
	assert.InDelta(t, 0.973157267, l.decay, 1e-9)

	for i := 0; i < 249; i++ {
		l.decayEpsilon()
	}
	assert.InDelta(t, 0.9*math.Pow(l.decay, 249), l.epsilon, 1e-12)
	assert.Greater(t, l.epsilon, 0.001)

	l.decayEpsilon()
	assert.Equal(t, 0.001, l.epsilon, "lands exactly on the floor")

	for i := 0; i < 10; i++ {
		l.decayEpsilon()
	}
	assert.Equal(t, 0.001, l.epsilon, "frozen afterwards")
}

func TestQLearner_TiesBreakOnLowestPrice(t *testing.T) {
	l := newQLearner(QParams{}.resolved(), fixedRand{f: 0.999})
	l.epsilon = 0

	p, explored := l.choose()
	assert.Equal(t, 0, p)
	assert.False(t, explored)

	l.update(30, 4)
	l.update(70, 4)
	assert.Equal(t, 2.0, l.q[ladderIndex(30)])
	p, _ = l.choose()
	assert.Equal(t, 30, p)
}

func TestQLearning_EpisodeEndRewardsUsers(t *testing.T) {
	// GIVEN a learner that starts at 60 and no longer explores
	cfg := Config{Policy: "qlearning", QLearning: QParams{EpsilonBegin: ptr(0.02), EpsilonEnd: ptr(0.01), Exploration: ptr(1)}}
	m := NewManager(testutil.Diamond(t), cfg, fixedRand{f: 0.5, n: 6})
	m.InitializePrices()
	m.BeforeEpisode()
	top, _ := m.Policy("top")
	require.Equal(t, 60, top.Price())

	// WHEN three users took the segment
	for i := 0; i < 3; i++ {
		m.IncrementUsers("top")
	}
	decisions := m.EndEpisode()

	// THEN the value of 60 rises and becomes the greedy choice
	q := top.(*QLearning)
	assert.Equal(t, 1.5, q.Values()[60])
	assert.Equal(t, 60, top.NextPrice())
	assert.Equal(t, 0.01, q.Epsilon())
	require.Len(t, decisions, 7)
	assert.False(t, decisions[1].Explored)
}

func TestQLearning_DrawUsesEpsilonBeforeDecay(t *testing.T) {
	// GIVEN a learner whose single exploration iteration takes epsilon from 0.5 to 0.01
	cfg := Config{Policy: "qlearning", QLearning: QParams{EpsilonBegin: ptr(0.5), EpsilonEnd: ptr(0.01), Exploration: ptr(1)}}
	m := NewManager(testutil.Diamond(t), cfg, fixedRand{f: 0.3, n: 6})
	m.InitializePrices()
	m.BeforeEpisode()

	// WHEN the first episode ends with a draw of 0.3
	decisions := m.EndEpisode()

	// THEN the draw is compared against the undecayed epsilon and explores
	var top Decision
	for _, d := range decisions {
		if d.Segment == "top" {
			top = d
		}
	}
	require.Equal(t, "top", top.Segment)
	assert.True(t, top.Explored)
	assert.Equal(t, 0.5, top.Epsilon, "records the epsilon of the draw")

	// AND the decay only shows up afterwards
	p, _ := m.Policy("top")
	assert.Equal(t, 0.01, p.(*QLearning).Epsilon())
}

func TestLegacyReward_PenalizesEmptySegments(t *testing.T) {
	assert.InDelta(t, 80-300*math.Exp(-2), legacyReward(2, 40, 10), 1e-9)
	assert.InDelta(t, -300.0, legacyReward(0, 40, 10), 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", Config{}, ""},
		{"unknown policy", Config{Policy: "auction"}, "unknown pricing policy"},
		{"zero alpha", Config{QLearning: QParams{Alpha: ptr(0.0)}}, "alpha"},
		{"inverted epsilon", Config{QLearning: QParams{EpsilonBegin: ptr(0.1), EpsilonEnd: ptr(0.5)}}, "epsilon_end"},
		{"no exploration", Config{QLearning: QParams{Exploration: ptr(0)}}, "exploration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"valid", "policy: qlearning\nqlearning:\n  epsilon_begin: 0.8\n", ""},
		{"misspelled top-level key", "polcy: greedy\n", "polcy"},
		{"misspelled learner key", "policy: qlearning\nqlearning:\n  epsilon_bgein: 0.8\n", "epsilon_bgein"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pricing.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0644))

			cfg, err := LoadConfig(path)

			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "qlearning", cfg.Policy)
			require.NotNil(t, cfg.QLearning.EpsilonBegin)
			assert.Equal(t, 0.8, *cfg.QLearning.EpsilonBegin)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading pricing config")
}

func TestNewPolicy_PanicsOnUnknownName(t *testing.T) {
	seg, _ := testutil.Diamond(t).Segment("in")
	assert.Panics(t, func() { NewPolicy("auction", seg, Config{}, rand.New(rand.NewSource(1))) })
}
