package catalog

import "strconv"

// AppID identifies a streaming app on a device (the numeric channel code the
// device reports in query/active-app and accepts in launch/<id>).
type AppID int

// Known apps.
const (
	AppUnknown     AppID = 0
	AppNetflix     AppID = 12
	AppPluto       AppID = 74519
	AppParamount   AppID = 31440
	AppFrndly      AppID = 298229
	AppYouTubeTV   AppID = 195316
	AppRokuChannel AppID = 151908
)

var appNames = map[AppID]string{
	AppUnknown:     "Unknown",
	AppNetflix:     "Netflix",
	AppPluto:       "Pluto TV",
	AppParamount:   "Paramount+",
	AppFrndly:      "FrndlyTV",
	AppYouTubeTV:   "YouTube TV",
	AppRokuChannel: "The Roku Channel",
}

// String returns the app's display name, or "app <id>" for apps outside the
// known set.
func (a AppID) String() string {
	if name, ok := appNames[a]; ok {
		return name
	}
	return "app " + strconv.Itoa(int(a))
}

// IsUnknown reports whether a is the "no app / home screen" value.
func (a AppID) IsUnknown() bool {
	return a == AppUnknown
}

// KnownApps returns the fixed app set, excluding AppUnknown.
func KnownApps() []AppID {
	return []AppID{AppNetflix, AppPluto, AppParamount, AppFrndly, AppYouTubeTV, AppRokuChannel}
}
