// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vesta

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Revision selects the instruction set and gas schedule used for executing
// code. Revisions are ordered; later ones include the features of earlier ones.
type Revision int

const (
	R00_Frontier Revision = iota
	R01_Homestead
	R02_TangerineWhistle
	R03_SpuriousDragon
	R04_Byzantium
	R05_Petersburg
	numRevisions int = iota
)

// NewestRevision is the latest revision supported by this module.
const NewestRevision = Revision(numRevisions - 1)

// GetAllKnownRevisions lists all supported revisions in ascending order.
func GetAllKnownRevisions() []Revision {
	res := make([]Revision, 0, numRevisions)
	for r := R00_Frontier; r <= NewestRevision; r++ {
		res = append(res, r)
	}
	return res
}

func (r Revision) String() string {
	switch r {
	case R00_Frontier:
		return "Frontier"
	case R01_Homestead:
		return "Homestead"
	case R02_TangerineWhistle:
		return "TangerineWhistle"
	case R03_SpuriousDragon:
		return "SpuriousDragon"
	case R04_Byzantium:
		return "Byzantium"
	case R05_Petersburg:
		return "Petersburg"
	default:
		return fmt.Sprintf("Revision(%d)", r)
	}
}

// ParseRevision resolves a revision by its name, ignoring case.
func ParseRevision(name string) (Revision, error) {
	for _, r := range GetAllKnownRevisions() {
		if strings.EqualFold(r.String(), name) {
			return r, nil
		}
	}
	return 0, &ErrUnsupportedRevision{Name: name}
}

func (r Revision) MarshalJSON() ([]byte, error) {
	if r < R00_Frontier || r > NewestRevision {
		return nil, &json.UnsupportedValueError{Str: r.String()}
	}
	return json.Marshal(r.String())
}

func (r *Revision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	revision, err := ParseRevision(s)
	if err != nil {
		return err
	}
	*r = revision
	return nil
}

type ErrUnsupportedRevision struct {
	Name string
}

func (e *ErrUnsupportedRevision) Error() string {
	return fmt.Sprintf("unsupported revision %q", e.Name)
}
