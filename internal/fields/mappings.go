package fields

// Enum decode tables for Zepp integer codes. Unknown codes render as
// "Unknown (<code>)" rather than failing; the tables are best-effort port of
// the companion app's wire values.

var genderNames = map[int]string{
	0: "Male",
	1: "Female",
	2: "Not specified",
}

var wearingStateNames = map[int]string{
	0: "Not worn",
	1: "Wearing",
	2: "In motion",
}

var sleepStatusNames = map[int]string{
	0: "Awake",
	1: "Sleeping",
}

// sportTypeNames maps Zepp sport codes (after category-digit stripping) to
// display names.
var sportTypeNames = map[int]string{
	1:  "Running",
	2:  "Walking",
	3:  "Cycling",
	4:  "Treadmill",
	5:  "Freestyle",
	6:  "Pool Swimming",
	7:  "Open Water Swimming",
	8:  "Indoor Cycling",
	9:  "Elliptical",
	10: "Climbing",
	11: "Hiking",
	12: "Trail Running",
	13: "Rowing",
	14: "Jump Rope",
	15: "Yoga",
	16: "Strength Training",
	17: "Stair Climbing",
	18: "Cross Training",
	19: "Skiing",
	20: "Snowboarding",
}
