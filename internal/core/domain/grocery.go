package domain

import "fmt"

// Grocery is a single grocery item such as milk or bread.
// A zero ID marks a transient value that has not been saved yet.
type Grocery struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (g Grocery) Transient() bool {
	return g.ID == 0
}

// ApplyReplacement copies the mutable fields of r onto g. The ID is kept.
func (g Grocery) ApplyReplacement(r Grocery) Grocery {
	g.Name = r.Name
	return g
}

func (g Grocery) String() string {
	return fmt.Sprintf("Grocery(id=%d, name=%s)", g.ID, g.Name)
}
