// Package catalog holds the demo question bank and assessment schedule used
// to seed a fresh database.
package catalog

import (
	"fmt"

	"github.com/stemsi/examroom/internal/exam"
)

// DemoQuestionCount is the size of the default question bank.
const DemoQuestionCount = 20

// DefaultMarks is the marks awarded per demo question.
const DefaultMarks = 2

var javaQuestions = []exam.Question{
	{Prompt: "Which of the following is used to find and fix bugs in Java programs?", Options: []string{"JVM", "JRE", "JDK", "JDB"}},
	{Prompt: "What is the size of float variable?", Options: []string{"8 bit", "16 bit", "32 bit", "64 bit"}},
	{Prompt: "Automatic type conversion is possible in which of the following cases?", Options: []string{"Byte to int", "Int to long", "Long to int", "Short to int"}},
	{Prompt: "Which package contains all the classes and interfaces for collection framework?", Options: []string{"java.lang", "java.util", "java.net", "java.io"}},
	{Prompt: "Which of these method of HashSet is used to remove all the elements from HashSet?", Options: []string{"removeAll()", "clear()", "deleteAll()", "remove()"}},
}

// Questions returns n questions: the Java bank first, padded with generic
// items. Ids run from 1 to n.
func Questions(n int) []exam.Question {
	out := make([]exam.Question, 0, n)
	for i := 0; i < n; i++ {
		q := exam.Question{ID: i + 1, Marks: DefaultMarks}
		if i < len(javaQuestions) {
			q.Prompt = javaQuestions[i].Prompt
			q.Options = append([]string(nil), javaQuestions[i].Options...)
		} else {
			q.Prompt = fmt.Sprintf("Sample Question %d: Choose the correct option", i+1)
			q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
		}
		out = append(out, q)
	}
	return out
}

// DemoQuestions returns the default 20-question bank.
func DemoQuestions() []exam.Question {
	return Questions(DemoQuestionCount)
}
