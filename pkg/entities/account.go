package entities

// Account is the resolved caller identity. The core trusts it as given.
type Account struct {
	ID   string
	Name string
}
