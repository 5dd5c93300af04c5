package directory

// Option is one selectable entry in a multi-select step.
type Option struct {
	Label       string
	Value       string
	Description string
}

// InterestOptions lists what a new member may want from the community.
var InterestOptions = []Option{
	{Label: "Get feedback", Value: "feedback", Description: "Get advice and guidance on your app's design, paywall strategy, or anything else"},
	{Label: "Get product and content updates", Value: "updates", Description: "Stay up-to-date with new features and learning materials"},
	{Label: "Learn new monetization strategies", Value: "learn", Description: "Learn insights about creating a sustainable app business"},
	{Label: "Promote my app", Value: "promote", Description: "Share your work with our community of app makers"},
	{Label: "Get support", Value: "support", Description: "Chat with our support team about the SDK or products"},
	{Label: "Network with others", Value: "network", Description: "Learn and grow with your fellow app builders"},
	{Label: "Other", Value: "other", Description: "Drop it in the community chat"},
}

// PlatformOptions lists the app platforms members build on.
var PlatformOptions = []Option{
	{Label: "iOS - Swift", Value: "iOS - Swift"},
	{Label: "Android - Kotlin", Value: "Android - Kotlin"},
	{Label: "React Native", Value: "React Native"},
	{Label: "Flutter or Flutterflow", Value: "Flutter"},
	{Label: "Unity", Value: "Unity"},
}

// ValidInterest and ValidPlatform check a submitted tag against the static
// lists.
func ValidInterest(value string) bool { return optionValue(InterestOptions, value) }
func ValidPlatform(value string) bool { return optionValue(PlatformOptions, value) }

func optionValue(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
