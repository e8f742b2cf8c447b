package execution

// DisplayStatus computes the status shown to users for an execution in the
// context of its siblings. When the execution belongs to an alternative
// modality group and another member of that group on the same request is
// already performed, it is shown as dispensed; the stored status is never
// touched, so reverting the performed sibling makes the real status reappear.
func (m *Machine) DisplayStatus(e *Execution, siblings []*Execution) Status {
	if e.Status == StatusPerformed || e.Status == StatusCancelled {
		return e.Status
	}
	group, ok := m.rules.alternativeGroup(e.ProcedureID)
	if !ok {
		return e.Status
	}
	for _, s := range siblings {
		if s.ID == e.ID || s.Status != StatusPerformed {
			continue
		}
		if g, sok := m.rules.alternativeGroup(s.ProcedureID); sok && g == group {
			return StatusDispensed
		}
	}
	return e.Status
}

// AwaitingResult reports the derived "awaiting result" condition: material
// was collected but no result has been registered on a not-yet-performed
// execution of an anatomo-pathological procedure.
func (m *Machine) AwaitingResult(e *Execution) bool {
	if e.Status != StatusPending && e.Status != StatusScheduled {
		return false
	}
	if !m.rules.requiresPathology(e.ProcedureID) {
		return false
	}
	return e.MaterialCollectedAt != nil && e.ResultRegisteredAt == nil
}
