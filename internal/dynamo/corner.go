package dynamo

// Corner identifies one of the four lever-cylinder assemblies.
type Corner int

const (
	FrontLeft Corner = iota
	FrontRight
	RearLeft
	RearRight
)

// NumCorners is the number of wheel/cylinder corners on the chassis.
const NumCorners = 4

var cornerNames = [NumCorners]string{"FL", "FR", "RL", "RR"}

// Corners lists the corners in index order.
var Corners = [NumCorners]Corner{FrontLeft, FrontRight, RearLeft, RearRight}

func (c Corner) String() string {
	if c < 0 || int(c) >= NumCorners {
		return "corner?"
	}
	return cornerNames[c]
}

// IsFront reports whether the corner sits on the front axle.
func (c Corner) IsFront() bool { return c == FrontLeft || c == FrontRight }

// IsLeft reports whether the corner sits on the left side.
func (c Corner) IsLeft() bool { return c == FrontLeft || c == RearLeft }

// Lateral returns the other corner on the same axle.
func (c Corner) Lateral() Corner {
	switch c {
	case FrontLeft:
		return FrontRight
	case FrontRight:
		return FrontLeft
	case RearLeft:
		return RearRight
	default:
		return RearLeft
	}
}
