package quiz

import "fmt"

// Answer is one selectable option, tagged with exactly one trait.
type Answer struct {
	TextKey string `json:"textKey"`
	Trait   Trait  `json:"trait"`
}

// Question is one quiz question with its four tagged answers.
type Question struct {
	TextKey string   `json:"textKey"`
	Answers []Answer `json:"answers"`
}

// questionLayout holds the trait behind each answer of each question,
// in presentation order. Text lives in the front-end translation
// catalog under q<N>_text / q<N>_a<M>; the backend only needs the tags.
var questionLayout = [][4]Trait{
	{Integro, Mordomo, Servo, Pacificador},
	{Integro, Adorador, Mordomo, Fiel},
	{Integro, Protetor, Celebrante, Servo},
	{Integro, Protetor, Adorador, Pacificador},
	{Servo, Mordomo, Sabio, Celebrante},
	{Servo, Sabio, Celebrante, Pacificador},
	{Servo, Adorador, Fiel, Celebrante},
	{Servo, Integro, Protetor, Pacificador},
	{Mordomo, Fiel, Celebrante, Pacificador},
	{Mordomo, Sabio, Fiel, Pacificador},
	{Mordomo, Protetor, Fiel, Sabio},
	{Mordomo, Integro, Servo, Adorador},
	{Adorador, Pacificador, Celebrante, Protetor},
	{Adorador, Sabio, Celebrante, Protetor},
	{Adorador, Protetor, Servo, Mordomo},
	{Adorador, Integro, Fiel, Mordomo},
	{Sabio, Protetor, Fiel, Servo},
	{Sabio, Celebrante, Mordomo, Protetor},
	{Sabio, Mordomo, Servo, Protetor},
	{Sabio, Integro, Fiel, Celebrante},
	{Fiel, Protetor, Adorador, Integro},
	{Fiel, Celebrante, Sabio, Protetor},
	{Fiel, Protetor, Integro, Celebrante},
	{Fiel, Sabio, Protetor, Pacificador},
	{Celebrante, Adorador, Fiel, Mordomo},
	{Celebrante, Mordomo, Sabio, Pacificador},
	{Celebrante, Adorador, Integro, Protetor},
	{Celebrante, Sabio, Servo, Mordomo},
	{Protetor, Integro, Servo, Pacificador},
	{Protetor, Fiel, Sabio, Servo},
	{Protetor, Adorador, Servo, Pacificador},
	{Protetor, Sabio, Adorador, Integro},
	{Pacificador, Protetor, Integro, Fiel},
	{Pacificador, Servo, Sabio, Integro},
	{Pacificador, Celebrante, Adorador, Mordomo},
	{Pacificador, Integro, Servo, Celebrante},
	{Pacificador, Fiel, Adorador, Celebrante},
	{Protetor, Servo, Fiel, Sabio},
	{Integro, Fiel, Celebrante, Protetor},
	{Integro, Celebrante, Fiel, Pacificador},
}

// Questions returns a fresh copy of the full question bank.
func Questions() []Question {
	out := make([]Question, len(questionLayout))
	for i, traits := range questionLayout {
		q := Question{TextKey: fmt.Sprintf("q%d_text", i+1)}
		for j, tr := range traits {
			q.Answers = append(q.Answers, Answer{
				TextKey: fmt.Sprintf("q%d_a%d", i+1, j+1),
				Trait:   tr,
			})
		}
		out[i] = q
	}
	return out
}
