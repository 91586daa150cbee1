package execshell

// CommandEventObserver is notified around every git invocation.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

// observerChain forwards events to each observer in registration order.
type observerChain []CommandEventObserver

func (chain observerChain) CommandStarted(command ShellCommand) {
	for _, observer := range chain {
		observer.CommandStarted(command)
	}
}

func (chain observerChain) CommandCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range chain {
		observer.CommandCompleted(command, result)
	}
}

func (chain observerChain) CommandExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range chain {
		observer.CommandExecutionFailed(command, failure)
	}
}
