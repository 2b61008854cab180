package homework

// Cost prices a generation request in credits. Base cost is 1 for up to 5
// tasks, then one more per started block of 5; the tier multiplier is
// applied after the ceiling.
func Cost(taskCount int, tierMultiplier int) int {
	base := 1
	if taskCount > 5 {
		base = (taskCount + 4) / 5
	}
	return base * tierMultiplier
}
