package pipeline

// QueryInstruction asks the model to turn a prompt into one search query.
const QueryInstruction = "The input that you will receive is an unformatted prompt. I would like you to rewrite " +
	"the prompt that is sent. You will rewrite the prompt as one singular google search query that is " +
	"optimized to provide resources that are most likely to answer the users question in the prompt."

const answerPreamble = "Please use the following realtime data from the internet to aid in the answering of " +
	"the prompt. Please do not remind the user that you do not have internet access. They already know. " +
	"\n DATA TO HELP AID RESPONSE:  "

// AnswerInstruction embeds the research summary in the final system message.
func AnswerInstruction(summary string) string {
	return answerPreamble + summary
}

// Truncate keeps the first max characters of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
