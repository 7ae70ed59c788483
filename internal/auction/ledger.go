package auction

import "github.com/mmeshcher/escrow-auction/internal/model"

// participant хранит эскроу одного участника: текущую сумму и историю
// вытесненных сумм, доступных для частичного возврата.
type participant struct {
	total   int64
	history []int64
	// refunds считает выполненные частичные возвраты.
	refunds int
}

// ledger ведёт учёт эскроу всех участников. Участники не удаляются,
// order сохраняет порядок первой ставки без повторов.
type ledger struct {
	participants map[string]*participant
	order        []string
}

func newLedger() *ledger {
	return &ledger{
		participants: make(map[string]*participant),
	}
}

func (l *ledger) get(id string) (*participant, bool) {
	p, ok := l.participants[id]
	return p, ok
}

func (l *ledger) total(id string) int64 {
	if p, ok := l.participants[id]; ok {
		return p.total
	}
	return 0
}

// deposit зачисляет amount участнику. Первая ставка регистрирует участника,
// каждая следующая переносит прежнюю сумму в историю.
func (l *ledger) deposit(id string, amount int64) int64 {
	p, ok := l.participants[id]
	if !ok {
		p = &participant{}
		l.participants[id] = p
		l.order = append(l.order, id)
	} else {
		p.history = append(p.history, p.total)
	}
	p.total += amount
	return p.total
}

// refundable возвращает сумму истории участника.
func (p *participant) refundable() int64 {
	var sum int64
	for _, v := range p.history {
		sum += v
	}
	return sum
}

func (l *ledger) bidders() []model.Bidder {
	res := make([]model.Bidder, 0, len(l.order))
	for _, id := range l.order {
		res = append(res, model.Bidder{Identity: id, Total: l.participants[id].total})
	}
	return res
}

func (l *ledger) histories() map[string][]int64 {
	res := make(map[string][]int64, len(l.participants))
	for id, p := range l.participants {
		if len(p.history) == 0 {
			continue
		}
		h := make([]int64, len(p.history))
		copy(h, p.history)
		res[id] = h
	}
	return res
}
