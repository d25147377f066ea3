package models

import "time"

// MaxTries is the number of guesses a player gets per day.
const MaxTries = 3

// Selection is the image a player picked as AI-generated for one pair.
type Selection struct {
	PairIndex   int    `json:"pairIndex"`
	SelectedURL string `json:"selectedUrl"`
}

// Attempt is one submitted guess over the whole puzzle.
type Attempt struct {
	Selections   []Selection `json:"selections"`
	CorrectCount int         `json:"correctCount"`
	TotalCount   int         `json:"totalCount"`
	SubmittedAt  time.Time   `json:"submittedAt"`
}

// PlayerSession is the per-user play state. Date fields are civil day keys.
type PlayerSession struct {
	UserID                string `json:"user_id"`
	TriesRemaining        int    `json:"tries_remaining"`
	LastPlayedDate        string `json:"last_played_date"`
	LastSelectionMadeDate string `json:"last_selection_made_date"`
	LastTriesMadeDate     string `json:"last_tries_made_date"`

	// LastAttemptRecordedDate is the day whose result already counts in the stats.
	LastAttemptRecordedDate string `json:"last_attempt_recorded_date"`

	Selections          []Selection `json:"selections"`
	CompletedSelections []Selection `json:"completed_selections"`
	AlreadyGuessed      []string    `json:"already_guessed"`
	Attempts            []Attempt   `json:"attempts"`
	CompletedAttempts   []Attempt   `json:"completed_attempts"`

	CurrentStreak       int         `json:"current_streak"`
	MaxStreak           int         `json:"max_streak"`
	PerfectStreak       int         `json:"perfect_streak"`
	MaxPerfectStreak    int         `json:"max_perfect_streak"`
	PerfectPuzzles      int         `json:"perfect_puzzles"`
	GamesPlayed         int         `json:"games_played"`
	WinPercentage       int         `json:"win_percentage"`
	MistakeDistribution map[int]int `json:"mistake_distribution"`
	MostRecentScore     *int        `json:"most_recent_score"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlayerSession returns a zeroed session with a full set of tries.
func NewPlayerSession(userID string) *PlayerSession {
	return &PlayerSession{
		UserID:              userID,
		TriesRemaining:      MaxTries,
		Selections:          []Selection{},
		CompletedSelections: []Selection{},
		AlreadyGuessed:      []string{},
		Attempts:            []Attempt{},
		CompletedAttempts:   []Attempt{},
		MistakeDistribution: NewMistakeDistribution(),
	}
}

// NewMistakeDistribution returns a histogram with every bucket 0..MaxPairs present.
func NewMistakeDistribution() map[int]int {
	dist := make(map[int]int, MaxPairs+1)
	for i := 0; i <= MaxPairs; i++ {
		dist[i] = 0
	}
	return dist
}

// ClearAnswerState drops the selection state scoped to the previous puzzle.
func (s *PlayerSession) ClearAnswerState() {
	s.Selections = []Selection{}
	s.CompletedSelections = []Selection{}
	s.AlreadyGuessed = []string{}
	s.Attempts = []Attempt{}
	s.CompletedAttempts = []Attempt{}
}

// SelectionState is the answer state returned to players.
type SelectionState struct {
	Date                string      `json:"date"`
	Selections          []Selection `json:"selections"`
	CompletedSelections []Selection `json:"completedSelections"`
	AlreadyGuessed      []string    `json:"alreadyGuessed"`
	Attempts            []Attempt   `json:"attempts"`
	CompletedAttempts   []Attempt   `json:"completedAttempts"`
	TriesRemaining      int         `json:"triesRemaining"`
}

// SelectionStateOf projects s.
func SelectionStateOf(s *PlayerSession) *SelectionState {
	return &SelectionState{
		Date:                s.LastSelectionMadeDate,
		Selections:          s.Selections,
		CompletedSelections: s.CompletedSelections,
		AlreadyGuessed:      s.AlreadyGuessed,
		Attempts:            s.Attempts,
		CompletedAttempts:   s.CompletedAttempts,
		TriesRemaining:      s.TriesRemaining,
	}
}

// StreakState is returned after a completion.
type StreakState struct {
	CurrentStreak    int    `json:"currentStreak"`
	MaxStreak        int    `json:"maxStreak"`
	PerfectStreak    int    `json:"perfectStreak"`
	MaxPerfectStreak int    `json:"maxPerfectStreak"`
	LastPlayedDate   string `json:"lastPlayedDate"`
}

// PlayStatus answers "has this user played today".
type PlayStatus struct {
	HasPlayedToday bool `json:"hasPlayedToday"`
	TriesRemaining int  `json:"triesRemaining"`
}

// PlayerStats is the stats screen projection.
type PlayerStats struct {
	GamesPlayed         int         `json:"gamesPlayed"`
	WinPercentage       int         `json:"winPercentage"`
	PerfectPuzzles      int         `json:"perfectPuzzles"`
	CurrentStreak       int         `json:"currentStreak"`
	MaxStreak           int         `json:"maxStreak"`
	PerfectStreak       int         `json:"perfectStreak"`
	MaxPerfectStreak    int         `json:"maxPerfectStreak"`
	MistakeDistribution map[int]int `json:"mistakeDistribution"`
	MostRecentScore     *int        `json:"mostRecentScore"`
	LastPlayedDate      string      `json:"lastPlayedDate"`
}

// StatsOf projects s.
func StatsOf(s *PlayerSession) *PlayerStats {
	return &PlayerStats{
		GamesPlayed:         s.GamesPlayed,
		WinPercentage:       s.WinPercentage,
		PerfectPuzzles:      s.PerfectPuzzles,
		CurrentStreak:       s.CurrentStreak,
		MaxStreak:           s.MaxStreak,
		PerfectStreak:       s.PerfectStreak,
		MaxPerfectStreak:    s.MaxPerfectStreak,
		MistakeDistribution: s.MistakeDistribution,
		MostRecentScore:     s.MostRecentScore,
		LastPlayedDate:      s.LastPlayedDate,
	}
}
