package output

import "github.com/manifoldco/promptui"

// Confirm asks a yes/no question on stdin, returning false (no error) on a
// "no" answer (promptui.ErrAbort). Every other prompt error, an
// interrupted prompt included, is returned as the error.
func Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
