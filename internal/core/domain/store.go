package domain

import "fmt"

// Store is a grocery store. A zero ID marks a transient value.
type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s Store) Transient() bool {
	return s.ID == 0
}

func (s Store) ApplyReplacement(r Store) Store {
	s.Name = r.Name
	s.Address = r.Address
	return s
}

func (s Store) String() string {
	return fmt.Sprintf("Store(id=%d, name=%s, address=%s)", s.ID, s.Name, s.Address)
}
