package war

import (
	"github.com/google/uuid"

	"github.com/mezhov/kingdoms/internal/event"
)

// resolveLocked applies a war's outcome after it has been removed from the
// active set. Absorption of the losing primary happens only on decisive
// endings (surrender or auto-win); a timeout win is bragging rights only.
func (e *Engine) resolveLocked(w *War, winner Side, decisive bool) {
	attackerName, defenderName := "", ""
	var recipients []uuid.UUID
	for _, owner := range w.participants() {
		k, ok := e.registry.ByOwner(owner)
		if !ok {
			continue
		}
		switch owner {
		case w.attacker:
			attackerName = k.Name()
		case w.defender:
			defenderName = k.Name()
		}
		recipients = append(recipients, k.Members()...)
	}

	absorbed := decisive && winner != SideNone

	e.bus.Publish(event.WarResolved{
		Attacker:       w.attacker,
		Defender:       w.defender,
		AttackerName:   attackerName,
		DefenderName:   defenderName,
		WinnerSideID:   int32(winner),
		AttackerScore:  w.attackerScore,
		DefenderScore:  w.defenderScore,
		AttackerKills:  w.attackerKills,
		DefenderKills:  w.defenderKills,
		AttackerCities: w.capturedCount(SideAttacker),
		DefenderCities: w.capturedCount(SideDefender),
		Absorbed:       absorbed,
		Recipients:     recipients,
	})
	e.log.Info("war resolved",
		"attacker", attackerName,
		"defender", defenderName,
		"winner", winner.String(),
		"attacker_score", w.attackerScore,
		"defender_score", w.defenderScore,
		"absorbed", absorbed)

	if !absorbed {
		return
	}
	winnerOwner := w.primaryOf(winner)
	loserOwner := w.primaryOf(winner.Opposite())
	if err := e.registry.Absorb(winnerOwner, loserOwner); err != nil {
		e.log.Error("absorption failed", "winner", winnerOwner, "loser", loserOwner, "error", err)
	}
}
