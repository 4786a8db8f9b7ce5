package pneumo

import "github.com/san-kum/pneustab/internal/dynamo"

// NumLines is the number of pneumatic lines, two per axle.
const NumLines = 4

// Line joins the head chamber of one cylinder with the rod chamber of the
// other cylinder on the same axle.
type Line struct {
	Name string
	Head dynamo.Corner
	Rod  dynamo.Corner
}

// Topology is indexed so that line i carries the head chamber of corner i.
var Topology = [NumLines]Line{
	{Name: "A1", Head: dynamo.FrontLeft, Rod: dynamo.FrontRight},
	{Name: "B1", Head: dynamo.FrontRight, Rod: dynamo.FrontLeft},
	{Name: "A2", Head: dynamo.RearLeft, Rod: dynamo.RearRight},
	{Name: "B2", Head: dynamo.RearRight, Rod: dynamo.RearLeft},
}

// HeadLine returns the line connected to the head chamber of c.
func HeadLine(c dynamo.Corner) int { return int(c) }

// RodLine returns the line connected to the rod chamber of c.
func RodLine(c dynamo.Corner) int { return int(c.Lateral()) }

// LineState is the committed thermodynamic state of one line.
type LineState struct {
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
	Volume      float64 `json:"volume"`
	Mass        float64 `json:"mass"`
	// NetFlow is the mass flow entering the line, kg/s.
	NetFlow float64 `json:"net_flow"`
}

// ReceiverState is the committed state of the shared tank.
type ReceiverState struct {
	Pressure       float64 `json:"pressure"`
	Temperature    float64 `json:"temperature"`
	Volume         float64 `json:"volume"`
	Mass           float64 `json:"mass"`
	NetFlow        float64 `json:"net_flow"`
	VariableVolume bool    `json:"variable_volume"`
}

// Chamber is the combined enclosed volume of a line and its rate of change.
type Chamber struct {
	Volume float64
	Rate   float64
}

// ReceiverParams configures the shared tank.
type ReceiverParams struct {
	Volume         float64 `yaml:"volume"`
	Pressure       float64 `yaml:"pressure"`
	Temperature    float64 `yaml:"temperature"`
	VariableVolume bool    `yaml:"variable_volume"`
	MinVolume      float64 `yaml:"min_volume"`
	MaxVolume      float64 `yaml:"max_volume"`
}

func (r ReceiverParams) Validate() error {
	if err := dynamo.RequirePositive("receiver.volume", r.Volume); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("receiver.pressure", r.Pressure); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("receiver.temperature", r.Temperature); err != nil {
		return err
	}
	if r.VariableVolume {
		if err := dynamo.RequirePositive("receiver.min_volume", r.MinVolume); err != nil {
			return err
		}
		if r.MaxVolume < r.MinVolume {
			return dynamo.NewConfigError("receiver.max_volume", r.MaxVolume, "must not be below min_volume")
		}
		if r.Volume < r.MinVolume || r.Volume > r.MaxVolume {
			return dynamo.NewConfigError("receiver.volume", r.Volume, "must lie within [min_volume, max_volume]")
		}
	}
	return nil
}
