package infer

import "github.com/corten-ml/corten/internal/xerrors"

// Solve drives clauses to a fixpoint: each pass, every Ready clause is
// applied; clauses that report done are dropped, clauses Apply returns are
// folded into the next pass. The loop stops either when no clause makes
// progress in a full pass (some clauses may remain pending — unresolved
// outlets are tolerated, per spec.md §4.7) or when iterCap passes have run
// without reaching that point, in which case it returns ErrInferenceDiverged.
func Solve(clauses []Clause, iterCap int) error {
	pending := append([]Clause(nil), clauses...)
	for iter := 0; len(pending) > 0; iter++ {
		if iter >= iterCap {
			return xerrors.ErrInferenceDiverged
		}
		progressed := false
		next := make([]Clause, 0, len(pending))
		for _, c := range pending {
			if !c.Ready() {
				next = append(next, c)
				continue
			}
			changed, done, added, err := c.Apply()
			if err != nil {
				return err
			}
			if changed || len(added) > 0 {
				progressed = true
			}
			if !done {
				next = append(next, c)
			}
			next = append(next, added...)
		}
		pending = next
		if !progressed {
			return nil
		}
	}
	return nil
}
