package reinforcement

// Keys is the state of the four directional keys for manual control.
type Keys struct {
	Left, Right, Up, Down bool
}

// Heuristic maps key states to an action, each axis in {-1, 0, 1}. Right wins
// over Left and Down wins over Up when both are held.
func Heuristic(keys Keys) (action Action) {
	if keys.Left {
		action.X = -1
	}
	if keys.Right {
		action.X = 1
	}
	if keys.Up {
		action.Z = 1
	}
	if keys.Down {
		action.Z = -1
	}
	return
}
