package service

import (
	"fmt"
	"strings"
)

const AnswerScriptInstruction = `You are an expert transcriptionist specializing in handwritten documents.
Transcribe the attached PDF, which contains handwritten questions and answers.
Your task is to produce a clean, plain-text version of the content.
Follow these rules precisely:
1. Preserve the question and answer (Q&A) format.
2. Start each question with the prefix 'Question:' on a new line.
3. Start each answer with the prefix 'Answer:' on a new line.
4. For any handwritten math, transcribe it into clear, readable LaTeX format (e.g., $E = mc^2$, $\frac{a}{b}$).`

const RubricInstruction = `You are an AI assistant specializing in educational assessment.
Analyze the attached PDF, which appears to be a scoring rubric or grading guide.
Your task is to extract and transcribe this rubric into a clean, plain-text format.
Preserve all scoring criteria, sub-criteria, and their associated point values.
Structure the output logically, clearly linking criteria to their points.`

const QuestionPaperInstruction = `You are an expert transcriptionist specializing in exam papers.
Transcribe the attached PDF, which contains the questions of an exam or assignment.
Your task is to produce a clean, plain-text version of every question.
Follow these rules precisely:
1. Keep the original question numbering, including sub-question labels such as 1.a and 1.b.
2. Start each question on a new line.
3. Do not answer the questions or add commentary.
4. For any math, transcribe it into clear, readable LaTeX format (e.g., $E = mc^2$, $\frac{a}{b}$).`

const transcribeUserPrompt = "Please transcribe this document following all instructions."

const missingQuestions = "(not provided; infer the questions from the rubric and the student's answers)"

// BuildGradingPrompt renders the grading request for one answer script.
func BuildGradingPrompt(in GradeInput) string {
	questions := strings.TrimSpace(in.Questions)
	if questions == "" {
		questions = missingQuestions
	}

	return fmt.Sprintf(`You are an expert teacher grading a student's submission.

Question paper:
%s

Rubric (each question's grading criteria):
%s

Student's Answers:
%s

---
TASK:
1. Identify each sub-question using dotted numbering (like 1.a, 1.b, 2.a).
2. For each sub-question, use the rubric to decide a numeric score.
3. Provide a short reason for why that score fits the rubric.
4. Suggest how the student can improve.

Only use numeric scores listed on the rubric's scale for that sub-question. Do not invent new scales or in-between values.
Be strict, but if the rubric says to award full credit for an honest or short non-answer (for example "I don't know"), follow that rule exactly as written.

OUTPUT FORMAT:
Return a single JSON object and nothing else:
{
  "results": [
    {
      "question_id": "1.a",
      "score": <number>,
      "reason": "<reason based on rubric>",
      "improvement": "<how to improve>"
    }
  ],
  "overall_feedback": "<overall comment summarizing performance>",
  "total_score": <sum of all scores>
}
`, questions, strings.TrimSpace(in.Rubric), strings.TrimSpace(in.Answer))
}
