package domain

type Screen string

const (
	ScreenStart   Screen = "start"
	ScreenHome    Screen = "home"
	ScreenMap     Screen = "map"
	ScreenProfile Screen = "profile"
)

// ProfileItems is the fixed menu shown on the profile screen.
var ProfileItems = []ProfileItem{
	{Icon: "💳", Label: "Top Up"},
	{Icon: "⚙️", Label: "Settings"},
	{Icon: "🔔", Label: "Notifications"},
	{Icon: "🕒", Label: "History"},
	{Icon: "❓", Label: "Support"},
	{Icon: "➡️", Label: "Logout"},
}

type ProfileItem struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
}
