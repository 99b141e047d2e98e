/*
Package console is the terminal chat front end shared by the lessons.

A Session reads a line, runs it through a graph over
prebuilt.MessagesState and renders the reply as it streams:

	sess, err := console.NewSession(compiled)
	if err != nil {
	    return err
	}
	defer sess.Close()
	return sess.Run(ctx)

On a terminal the reply is drawn live with bubbletea (spinner, then a
markdown panel) and the prompt supports history and completion. When
input or output is redirected the same loop runs over plain line I/O.
*/
package console
