package homework

import "testing"

func TestCost(t *testing.T) {
	tests := []struct {
		taskCount  int
		multiplier int
		want       int
	}{
		{3, 1, 1},
		{5, 1, 1},
		{6, 1, 2},
		{10, 1, 2},
		{3, 2, 2},
		{6, 2, 4},
		{7, 2, 4},
		{10, 2, 4},
		{5, 5, 5},
		{6, 5, 10},
		{10, 5, 10},
	}

	for _, tt := range tests {
		if got := Cost(tt.taskCount, tt.multiplier); got != tt.want {
			t.Errorf("Cost(%d, %d) = %d, want %d", tt.taskCount, tt.multiplier, got, tt.want)
		}
	}
}
