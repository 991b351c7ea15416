package phase

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	done
)

// frame is one entry of the explicit traversal stack.
type frame struct {
	name string
	deps []string
	next int
}

// TopologicalSort returns the names of all phases of the set, including names only
// referenced as dependencies, ordered so that every phase appears after each of its
// dependencies. Phases without a relation to each other may appear in any relative
// order; the traversal visits names alphabetically so the result is stable for a
// given set.
//
// A dependency cycle yields a *ConfigurationError describing it and a nil order.
func TopologicalSort(s Set) ([]string, error) {
	names := s.Names()
	state := make(map[string]visitState, len(names))
	order := make([]string, 0, len(names))

	for _, root := range names {
		if state[root] != unvisited {
			continue
		}
		state[root] = visiting
		stack := []*frame{{name: root, deps: s.Dependencies(root)}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next == len(top.deps) {
				// post-order: all dependencies are already emitted
				state[top.name] = done
				order = append(order, top.name)
				stack = stack[:len(stack)-1]
				continue
			}

			dep := top.deps[top.next]
			top.next++
			switch state[dep] {
			case unvisited:
				state[dep] = visiting
				stack = append(stack, &frame{name: dep, deps: s.Dependencies(dep)})
			case visiting:
				return nil, &ConfigurationError{Cycle: cyclePath(stack, dep)}
			}
		}
	}
	return order, nil
}

// cyclePath extracts the cycle closed by an edge to dep, which is still on the stack.
// The path starts and ends with dep.
func cyclePath(stack []*frame, dep string) []string {
	start := 0
	for i, f := range stack {
		if f.name == dep {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	return append(path, dep)
}
