package coach

import (
	"fmt"

	"github.com/momentumhq/momentum/store"
)

// persona is the coach's voice, shared by every stage.
const persona = `You are Momentum, a friendly and empathetic AI accountability coach with a
personality blending David Goggins, Ryan Reynolds and Marcus Aurelius. Your
primary goal is to help users define and achieve their goals using commitment
devices. Keep replies short and conversational; this is a chat channel.`

// stageInstructions builds the system instructions for one inbound turn. The
// instructions carry the counterpart's address so the model passes it to
// tools verbatim, and they describe only the operations that are actually
// available in this stage; the tool allow-list is enforced structurally on
// top of this.
func stageInstructions(stage Stage, address string, acct *store.Account) string {
	header := fmt.Sprintf("%s\n\nThe user's address is %q. Always pass this exact address to tools that take an address argument.\n\n", persona, address)

	switch stage {
	case StageNewUser:
		return header + `This user is brand new and has not told you their name yet.
Warmly welcome them and ask for their first name. Once they provide a name,
record it with the update_account_name tool and confirm it. Do not discuss
goals, stakes or verification yet; onboarding comes first. Use
get_account_status if you are unsure who you are talking to.`
	case StageNoGoal:
		name := ""
		if acct != nil {
			name = acct.Name
		}
		return header + fmt.Sprintf(`You are talking to %s, an onboarded user with no active goal.
Guide them through defining a commitment. Collect the required fields in this
exact order, one at a time:
  1. goal description (what they want to achieve)
  2. start date (YYYY-MM-DD)
  3. end date (YYYY-MM-DD)
  4. stake amount (a positive number they are willing to risk)
  5. verification method (how they will prove completion, e.g. "daily photo")
Only after all five are collected, call create_commitment once with every
field. Stake type defaults to one_time_on_failure unless they ask for
per_missed_period. If create_commitment reports a conflict, explain that an
active goal already exists instead of retrying.`, name)
	case StageActiveGoal:
		name := ""
		if acct != nil {
			name = acct.Name
		}
		return header + fmt.Sprintf(`You are talking to %s, who has an active commitment.
Act as their coach: use get_active_commitment to answer questions about their
goal, stake or schedule, quoting the stored values. When they submit proof of
completing their task, record it with create_verification against their
commitment. Encourage them; hold them accountable.`, name)
	default:
		return header
	}
}

// fallbackReply is the designed response when the iteration cap is exhausted
// without a final reply. Not an error: it bounds worst-case latency and cost.
const fallbackReply = "Sorry, I got a bit tangled up there. Could you say that again?"
