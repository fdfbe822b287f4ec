package scene

// Content paths, relative to a content root.
const (
	WhiteTexture   = "Content/Textures/white.png.dxt"
	ObjectsTexture = "Content/Textures/objects.png.dxt"

	RoadModel      = "Content/Models/Carretera.dae.mdl"
	RoadTexture    = "Content/Textures/Carretera.png.dxt"
	WallModel      = "Content/Models/Pared1.dae.mdl"
	WallRightModel = "Content/Models/Pared1_d.dae.mdl"
	WallTexture    = "Content/Textures/Pared1.png.dxt"

	PlayerModel   = "Content/Models/Hypster.dae.mdl"
	PlayerTexture = "Content/Textures/hypsterTexture.png.dxt"
	SkateModel    = "Content/Models/Monopatin.dae.mdl"
	SkateTexture  = "Content/Textures/Monopatin.png.dxt"

	SmallCarModel = "Content/Models/Car1.dae.mdl"
	BigCarModel   = "Content/Models/Car2.dae.mdl"
	CarsTexture   = "Content/Textures/cars.png.dxt"

	PickupModel = "Content/Models/iconPicture.dae.mdl"
)

// decoration is a wall prop and the lightmap baked for the wall holding it.
type decoration struct {
	model    string
	lightmap string
}

var decorations = []decoration{
	{"Content/Models/ArbolBanco.dae.mdl", "Content/Textures/ArbolBanco.png.dxt"},
	{"Content/Models/ArbolParking.dae.mdl", "Content/Textures/ArbolParking.png.dxt"},
	{"Content/Models/VentanaBuzon.dae.mdl", "Content/Textures/VentanaBuzon.png.dxt"},
	{"Content/Models/VentanaRiego.dae.mdl", "Content/Textures/VentanaRiego.png.dxt"},
}

// ContentFiles lists every file LoadContent reads.
func ContentFiles() []string {
	files := []string{
		WhiteTexture, ObjectsTexture,
		RoadModel, RoadTexture, WallModel, WallRightModel, WallTexture,
		PlayerModel, PlayerTexture, SkateModel, SkateTexture,
		SmallCarModel, BigCarModel, CarsTexture,
		PickupModel,
	}
	for _, d := range decorations {
		files = append(files, d.model, d.lightmap)
	}
	return files
}

// Lane is a player track position, or a relative move between them.
type Lane int

const (
	Left   Lane = -1
	Center Lane = 0
	Right  Lane = 1
)

func (l Lane) String() string {
	switch l {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	}
	return "invalid"
}

func (l Lane) clamp() Lane {
	return max(Left, min(Right, l))
}
