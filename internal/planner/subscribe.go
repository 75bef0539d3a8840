package planner

// Subscribe registers for Change notifications. The returned cancel func
// must be called to release the subscription. Slow subscribers miss
// changes rather than block a mutation; a missed change only delays a
// re-render until the next one.
func (p *Planner) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 16)

	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.subMu.Unlock()

	return ch, func() {
		p.subMu.Lock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
		p.subMu.Unlock()
	}
}

func (p *Planner) publish(ch Change) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, c := range p.subs {
		select {
		case c <- ch:
		default:
		}
	}
}
