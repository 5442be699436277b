package build

// TargetRepository knows which targets were built in the firmware checkout.
type TargetRepository interface {
	Get(name string) (Target, bool, error)
	ListAll() ([]Target, error)
}
