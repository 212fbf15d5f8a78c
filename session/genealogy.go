package session

import "context"

// GetGenealogy resolves a session's family live from the store. Genealogy
// is a forest: a visited set guards against a corrupted store introducing a
// cycle, so resolution always terminates.
func (m *Manager) GetGenealogy(ctx context.Context, id string) (*Genealogy, error) {
	s, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("session", id)
	}

	g := &Genealogy{}
	visited := map[string]struct{}{s.ID: {}}

	// Ancestors, nearest first.
	for parentID := s.ParentID; parentID != ""; {
		if _, seen := visited[parentID]; seen {
			break
		}
		visited[parentID] = struct{}{}
		parent, err := m.store.LoadSession(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		g.Ancestors = append(g.Ancestors, parent)
		parentID = parent.ParentID
	}

	// Descendants, breadth-first.
	queue := append([]string(nil), s.ChildIDs...)
	seen := map[string]struct{}{s.ID: {}}
	for len(queue) > 0 {
		childID := queue[0]
		queue = queue[1:]
		if _, ok := seen[childID]; ok {
			continue
		}
		seen[childID] = struct{}{}
		child, err := m.store.LoadSession(ctx, childID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		g.Descendants = append(g.Descendants, child)
		queue = append(queue, child.ChildIDs...)
	}

	// Siblings: other children of the same parent.
	if s.ParentID != "" {
		parent, err := m.store.LoadSession(ctx, s.ParentID)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			for _, cid := range parent.ChildIDs {
				if cid == s.ID {
					continue
				}
				sib, err := m.store.LoadSession(ctx, cid)
				if err != nil {
					return nil, err
				}
				if sib != nil {
					g.Siblings = append(g.Siblings, sib)
				}
			}
		}
	}
	return g, nil
}
