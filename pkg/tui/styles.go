package tui

import "github.com/charmbracelet/lipgloss"

// Theme colors - "Indigo & Slate" palette
var (
	PrimaryColor   = lipgloss.Color("#6366F1") // Indigo 500
	SecondaryColor = lipgloss.Color("#0EA5E9") // Sky 500
	AccentColor    = lipgloss.Color("#F59E0B") // Amber 500
	SuccessColor   = lipgloss.Color("#10B981") // Emerald 500
	ErrorColor     = lipgloss.Color("#EF4444") // Red 500
	MutedColor     = lipgloss.Color("#64748B") // Slate 500

	BgDark   = lipgloss.Color("#1E293B") // Slate 800
	BgDarker = lipgloss.Color("#020617") // Slate 950

	TextPrimary   = lipgloss.Color("#F8FAFC") // Slate 50
	TextSecondary = lipgloss.Color("#94A3B8") // Slate 400
	TextMuted     = lipgloss.Color("#475569") // Slate 600
)

// Shared Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(BgDark).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(TextSecondary)

	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	ErrorMsgStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsgStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	URLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E2E8F0")).
			Background(BgDarker).
			Underline(true)

	// Input boxes - indigo border when focused
	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(PrimaryColor).
				Padding(0, 1)

	BlurredInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(TextMuted).
				Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			MarginTop(1)

	// Badges - Clean & Flat
	BadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			MarginRight(1)

	CreateBadgeStyle = BadgeStyle.
				Background(PrimaryColor).
				Foreground(TextPrimary)

	EditBadgeStyle = BadgeStyle.
			Background(AccentColor).
			Foreground(BgDarker)

	BusyBadgeStyle = BadgeStyle.
			Background(SuccessColor).
			Foreground(BgDarker)
)
