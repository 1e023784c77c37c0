package sheet

import (
	"fmt"

	"inspection/api/internal/grid"
)

// Mutation is one user event applied to a sheet. Row and lot changes always
// target the primary grid; secondaries follow through Sync.
type Mutation func(s *Sheet) error

func AddRows(count, lot int) Mutation {
	return func(s *Sheet) error {
		if s.Primary.AddRows(count, lot) < 0 {
			return fmt.Errorf("%w: %d rows", ErrRowLimit, s.Primary.MaxRows())
		}
		return nil
	}
}

func DeleteLastRow(lot int) Mutation {
	return func(s *Sheet) error {
		s.Primary.DeleteLastRow(lot)
		return nil
	}
}

func CreateLot(rows int) Mutation {
	return func(s *Sheet) error {
		if s.Primary.CreateLot(rows) < 0 {
			return fmt.Errorf("%w: %d rows", ErrRowLimit, s.Primary.MaxRows())
		}
		return nil
	}
}

func DeleteLot() Mutation {
	return func(s *Sheet) error {
		s.Primary.DeleteLot()
		return nil
	}
}

// SetCell stores typed text, constrained to the column. With commit set the
// commit format is applied as well, as on blur or Enter.
func SetCell(gridName string, pos grid.Pos, text string, commit bool) Mutation {
	return func(s *Sheet) error {
		g, err := s.Grid(gridName)
		if err != nil {
			return err
		}
		if _, ok := g.Set(pos, text); !ok {
			return fmt.Errorf("%w: %s %+v", ErrReadOnly, g.Name(), pos)
		}
		if commit {
			g.Commit(pos)
		}
		return nil
	}
}

func SetLock(gridName, column string, locked bool) Mutation {
	return func(s *Sheet) error {
		g, err := s.Grid(gridName)
		if err != nil {
			return err
		}
		return g.SetLock(column, locked)
	}
}
