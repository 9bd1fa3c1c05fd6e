package models

// Audience partitions honor-roll views between staff and the public.
type Audience string

const (
	AudiencePublic Audience = "public"
	AudienceStaff  Audience = "staff"
)

// LeaderboardEntry is one row of the streak leaderboard.
type LeaderboardEntry struct {
	StudentID             string `db:"student_id" json:"id"`
	StudentName           string `db:"student_name" json:"studentName"`
	CurrentStreakWeeks    int    `db:"current_streak_weeks" json:"currentStreakWeeks"`
	LongestStreakWeeks    int    `db:"longest_streak_weeks" json:"longestStreakWeeks"`
	TotalLessonsSubmitted int    `db:"total_lessons_submitted" json:"totalLessonsSubmitted"`
}

// HallOfFameEntry marks a student who completed every published course in a
// lineup, keyed by the date the lineup was finished.
type HallOfFameEntry struct {
	StudentName string `db:"student_name" json:"studentName"`
	CompletedAt string `db:"completed_at" json:"completedAt"`
}

// MVP names the most active student for a month within one audience.
type MVP struct {
	Name    string `json:"name"`
	Lessons int    `json:"lessons"`
}

// MVPResult is the monthly MVP view. A nil MVP means no winner for that
// partition (empty month or tie).
type MVPResult struct {
	Month     string `json:"month"`
	PublicMVP *MVP   `json:"publicMvp"`
	StaffMVP  *MVP   `json:"staffMvp"`
}

// MonthlyLessonCount is one student's passed-lesson tally for a month.
type MonthlyLessonCount struct {
	StudentID   string `db:"student_id"`
	StudentName string `db:"student_name"`
	IsStaff     bool   `db:"is_staff"`
	Lessons     int    `db:"lessons"`
}
