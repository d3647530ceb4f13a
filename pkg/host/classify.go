package host

// BlockClass is what a block means to the extension, decided once at registration.
type BlockClass uint8

const (
	ClassOther BlockClass = iota
	ClassThruster
	ClassController
	ClassTurret
)

func (c BlockClass) String() string {
	switch c {
	case ClassThruster:
		return "thruster"
	case ClassController:
		return "controller"
	case ClassTurret:
		return "turret"
	default:
		return "other"
	}
}

// Classify inspects the block's capabilities. A nil block is ClassOther.
func Classify(b Block) BlockClass {
	switch b.(type) {
	case Thrust:
		return ClassThruster
	case ShipController:
		return ClassController
	case Turret:
		return ClassTurret
	default:
		return ClassOther
	}
}
