package cli

import (
	"github.com/AlecAivazis/survey/v2"
)

// confirmPrompt asks a yes/no question on the terminal, defaulting to no.
func confirmPrompt(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
