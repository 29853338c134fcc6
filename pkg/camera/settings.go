package camera

type Settings struct {
	FPS int
}
