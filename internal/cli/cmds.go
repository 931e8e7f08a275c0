package cli

func regCommands() {
	//Ledger
	rootCmd.AddCommand(seedGenesisCmd)
	rootCmd.AddCommand(appendBlockCmd)

	//Topology
	rootCmd.AddCommand(registerNodeCmd)
	rootCmd.AddCommand(markFaultyCmd)
	rootCmd.AddCommand(addPeerLinkCmd)
	rootCmd.AddCommand(removePeerLinkCmd)

	//Gossip
	rootCmd.AddCommand(recordKnowledgeCmd)
	rootCmd.AddCommand(sendGossipCmd)
	rootCmd.AddCommand(syncFromKnowledgeCmd)

	//Consensus
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(decideCmd)

	//Audits
	rootCmd.AddCommand(safetyAuditCmd)
	rootCmd.AddCommand(livenessAuditCmd)
	rootCmd.AddCommand(syncAuditCmd)

	rootCmd.AddCommand(showCmd)
}
